package render

import (
	"context"
	"errors"

	"github.com/RyanBlaney/sonido-spectra/analysis"
)

// Multi fans every call out to each renderer in order and joins their errors
type Multi []analysis.Renderer

func (m Multi) RenderSpectrogram(ctx context.Context, result *analysis.ChannelResult, labels analysis.Labels) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RenderSpectrogram(ctx, result, labels))
	}
	return errors.Join(errs...)
}

func (m Multi) RenderSpectrum(ctx context.Context, channel, frame int, points []analysis.SpectrumPoint, labels analysis.Labels) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RenderSpectrum(ctx, channel, frame, points, labels))
	}
	return errors.Join(errs...)
}

func (m Multi) RenderPhaseDifferential(ctx context.Context, result *analysis.PhaseDifferentialResult) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RenderPhaseDifferential(ctx, result))
	}
	return errors.Join(errs...)
}

var (
	_ analysis.Renderer = (*PNGRenderer)(nil)
	_ analysis.Renderer = (*Exporter)(nil)
	_ analysis.Renderer = Multi(nil)
)
