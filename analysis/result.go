package analysis

import (
	"github.com/RyanBlaney/sonido-spectra/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectra/algorithms/windowing"
)

// ChannelResult is the published analysis of one channel: the real-valued
// [bins][frames] matrix after integration and mode transform plus the axis
// bounds needed to address it. It is never modified after publication.
type ChannelResult struct {
	Channel          int            `json:"channel"`
	Mode             spectral.Mode  `json:"mode"`
	Window           windowing.Kind `json:"window"`
	SampleRate       int            `json:"sample_rate"`
	FFTSize          int            `json:"fft_size"`
	Hop              int            `json:"hop"` // effective column spacing, hop*integration_count
	IntegrationCount int            `json:"integration_count"`
	FreqMaxKHz       float64        `json:"freq_max_khz"`
	TimeMaxS         float64        `json:"time_max_s"`
	Data             [][]float64    `json:"data"`
}

// Bins returns the number of frequency rows
func (r *ChannelResult) Bins() int {
	return len(r.Data)
}

// Frames returns the number of time columns
func (r *ChannelResult) Frames() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// BinFrequency returns the centre frequency of bin k in Hz
func (r *ChannelResult) BinFrequency(k int) float64 {
	return float64(k) * float64(r.SampleRate) / float64(r.FFTSize)
}

// FrameTime returns the start time of column j in seconds
func (r *ChannelResult) FrameTime(j int) float64 {
	return spectral.FrameTime(j, r.Hop, r.SampleRate)
}

// PhaseDifferentialResult holds phase(A) - phase(B) in degrees at full STFT
// frame resolution. Values are not wrapped; DisplayMin and DisplayMax are the
// fixed bounds a renderer should use.
type PhaseDifferentialResult struct {
	ChannelA   int         `json:"channel_a"`
	ChannelB   int         `json:"channel_b"`
	SampleRate int         `json:"sample_rate"`
	FFTSize    int         `json:"fft_size"`
	Hop        int         `json:"hop"`
	FreqMaxKHz float64     `json:"freq_max_khz"`
	TimeMaxS   float64     `json:"time_max_s"`
	DisplayMin float64     `json:"display_min"`
	DisplayMax float64     `json:"display_max"`
	Data       [][]float64 `json:"data"`
}

// Bins returns the number of frequency rows
func (r *PhaseDifferentialResult) Bins() int {
	return len(r.Data)
}

// Frames returns the number of time columns
func (r *PhaseDifferentialResult) Frames() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// SpectrumPoint is one bin of a single-column spectrum
type SpectrumPoint struct {
	FrequencyHz float64 `json:"frequency_hz" yaml:"frequency_hz"`
	Value       float64 `json:"value" yaml:"value"`
}

// Summary describes the finite values of a channel matrix
type Summary struct {
	Channel   int     `json:"channel" yaml:"channel"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	Mean      float64 `json:"mean" yaml:"mean"`
	StdDev    float64 `json:"std_dev" yaml:"std_dev"`
	Finite    int     `json:"finite" yaml:"finite"`
	NonFinite int     `json:"non_finite" yaml:"non_finite"`
}

// Labels are the axis labels for a spectrum mode
type Labels struct {
	Value     string `json:"value"`
	Time      string `json:"time"`
	Frequency string `json:"frequency"`
}

// LabelsFor returns the axis labels used when rendering mode
func LabelsFor(mode spectral.Mode) Labels {
	labels := Labels{
		Time:      "Time [s]",
		Frequency: "Frequency [kHz]",
	}

	switch mode {
	case spectral.AmplitudeDB:
		labels.Value = "Intensity [dB]"
	case spectral.AmplitudeLinear:
		labels.Value = "Magnitude [linear]"
	case spectral.PhaseRad:
		labels.Value = "Phase [radians]"
	case spectral.PhaseDeg:
		labels.Value = "Phase [degrees]"
	default:
		labels.Value = string(mode)
	}
	return labels
}
