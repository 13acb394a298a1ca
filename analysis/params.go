package analysis

import (
	"fmt"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectra/algorithms/windowing"
)

// ChannelPair selects the two channels of a phase differential
type ChannelPair struct {
	A int `json:"channel_a" yaml:"channel_a"`
	B int `json:"channel_b" yaml:"channel_b"`
}

func (p ChannelPair) String() string {
	return fmt.Sprintf("(%d, %d)", p.A, p.B)
}

// Params is the full parameter tuple of a recompute. A nil PhaseDifferential
// disables the differential.
type Params struct {
	FFTSize           int            `json:"fft_size" yaml:"fft_size"`
	Hop               int            `json:"hop" yaml:"hop"`
	IntegrationCount  int            `json:"integration_count" yaml:"integration_count"`
	Window            windowing.Kind `json:"window" yaml:"window"`
	Mode              spectral.Mode  `json:"mode" yaml:"mode"`
	PhaseDifferential *ChannelPair   `json:"phase_differential,omitempty" yaml:"phase_differential,omitempty"`
}

// DefaultParams returns the initial parameter set: 256-point rectangular
// frames without overlap, no integration, amplitude in dB.
func DefaultParams() Params {
	return Params{
		FFTSize:          256,
		Hop:              256,
		IntegrationCount: 1,
		Window:           windowing.Rectangular,
		Mode:             spectral.AmplitudeDB,
	}
}

// HopFromOverlap converts a frame overlap in samples to a hop size
func HopFromOverlap(fftSize, overlap int) (int, error) {
	if overlap < 0 {
		return 0, common.NewInvalidParameter("overlap", overlap, "overlap must not be negative")
	}
	if overlap >= fftSize {
		return 0, common.NewInvalidParameter("overlap", overlap, fmt.Sprintf("overlap must be smaller than fft_size (%d)", fftSize))
	}
	return fftSize - overlap, nil
}

// Validate checks params against buffer and returns the first failure.
// Nothing is computed when it returns an error.
func (p Params) Validate(buffer *SampleBuffer) error {
	if p.FFTSize <= 0 {
		return common.NewInvalidParameter("fft_size", p.FFTSize, "FFT size must be positive")
	}
	if p.Hop <= 0 {
		return common.NewInvalidParameter("hop", p.Hop, "hop size must be positive")
	}
	if p.IntegrationCount <= 0 {
		return common.NewInvalidParameter("integration_count", p.IntegrationCount, "integration count must be positive")
	}
	if !p.Window.Valid() {
		return common.NewInvalidParameter("window_kind", string(p.Window), "unsupported window type")
	}
	if !p.Mode.Valid() {
		return common.NewInvalidParameter("spectrum_mode", string(p.Mode), "unsupported spectrum mode")
	}

	if buffer == nil {
		return common.NewNotComputed("no sample buffer loaded")
	}
	if p.FFTSize > buffer.Len() {
		return common.NewInvalidParameter("fft_size", p.FFTSize,
			fmt.Sprintf("FFT size exceeds channel sample count (%d)", buffer.Len()))
	}

	if pair := p.PhaseDifferential; pair != nil {
		channels := buffer.ChannelCount()
		if pair.A < 0 || pair.A >= channels {
			return common.NewChannelIndexOutOfRange("channel_a", pair.A, channels)
		}
		if pair.B < 0 || pair.B >= channels {
			return common.NewChannelIndexOutOfRange("channel_b", pair.B, channels)
		}
		if pair.A == pair.B {
			return common.NewInvalidChannelPair(pair.A)
		}
	}

	return nil
}

// paramsKey is the comparable form of Params used as a cache key
type paramsKey struct {
	fftSize          int
	hop              int
	integrationCount int
	window           windowing.Kind
	mode             spectral.Mode
	hasPair          bool
	pair             ChannelPair
}

func (p Params) key() paramsKey {
	k := paramsKey{
		fftSize:          p.FFTSize,
		hop:              p.Hop,
		integrationCount: p.IntegrationCount,
		window:           p.Window,
		mode:             p.Mode,
	}
	if p.PhaseDifferential != nil {
		k.hasPair = true
		k.pair = *p.PhaseDifferential
	}
	return k
}

// clone returns a copy that does not share the ChannelPair pointer
func (p Params) clone() Params {
	if p.PhaseDifferential != nil {
		pair := *p.PhaseDifferential
		p.PhaseDifferential = &pair
	}
	return p
}
