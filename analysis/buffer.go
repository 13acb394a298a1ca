package analysis

import (
	"fmt"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

// SampleBuffer is a decoded multi-channel recording. It is created by an
// AudioSource and never mutated by the pipeline.
type SampleBuffer struct {
	SampleRate int         `json:"sample_rate"`
	Samples    [][]float64 `json:"-"` // [channel][sample]
}

// NewSampleBuffer validates and wraps per-channel samples. Mono input is a
// single-element outer slice.
func NewSampleBuffer(sampleRate int, samples [][]float64) (*SampleBuffer, error) {
	if sampleRate <= 0 {
		return nil, common.NewInvalidParameter("sample_rate", sampleRate, "sample rate must be positive")
	}
	if len(samples) == 0 {
		return nil, common.NewInvalidParameter("channel_count", 0, "at least one channel is required")
	}
	n := len(samples[0])
	for ch, s := range samples {
		if len(s) != n {
			return nil, common.NewInvalidParameter("channel_length", len(s),
				fmt.Sprintf("channel %d differs in length from channel 0 (%d samples)", ch, n))
		}
	}

	return &SampleBuffer{
		SampleRate: sampleRate,
		Samples:    samples,
	}, nil
}

// ChannelCount returns the number of channels
func (b *SampleBuffer) ChannelCount() int {
	return len(b.Samples)
}

// Len returns the per-channel sample count
func (b *SampleBuffer) Len() int {
	if len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

// Duration returns the recording length in seconds
func (b *SampleBuffer) Duration() float64 {
	return float64(b.Len()) / float64(b.SampleRate)
}

// Channel returns the samples of channel ch. The slice is shared and must not
// be modified.
func (b *SampleBuffer) Channel(ch int) ([]float64, error) {
	if ch < 0 || ch >= len(b.Samples) {
		return nil, common.NewChannelIndexOutOfRange("channel", ch, len(b.Samples))
	}
	return b.Samples[ch], nil
}
