package analysis

import "context"

// AudioSource decodes a file into a SampleBuffer. A missing path yields an
// error matching common.ErrFileNotFound.
type AudioSource interface {
	Load(ctx context.Context, path string) (*SampleBuffer, error)
}

// Renderer consumes published results. Implementations must not modify the
// matrices they are handed.
type Renderer interface {
	RenderSpectrogram(ctx context.Context, result *ChannelResult, labels Labels) error
	RenderSpectrum(ctx context.Context, channel, frame int, points []SpectrumPoint, labels Labels) error
	RenderPhaseDifferential(ctx context.Context, result *PhaseDifferentialResult) error
}
