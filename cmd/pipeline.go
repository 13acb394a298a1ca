package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/config"
	"github.com/RyanBlaney/sonido-spectra/logging"
	"github.com/RyanBlaney/sonido-spectra/render"
	"github.com/RyanBlaney/sonido-spectra/transcode"
)

// analyzeFile decodes path and runs a full recompute with the configured parameters
func analyzeFile(ctx context.Context, cfg *config.Config, path string) (*analysis.Orchestrator, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"function": "analyzeFile",
		"path":     path,
	})

	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	decoderConfig := cfg.Decoder
	source := transcode.NewSource(&decoderConfig)

	start := time.Now()
	buffer, err := source.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Audio loaded", logging.Fields{
		"sample_rate": buffer.SampleRate,
		"channels":    buffer.ChannelCount(),
		"samples":     buffer.Len(),
		"elapsed":     time.Since(start),
	})

	orchestrator := analysis.NewOrchestrator(buffer,
		analysis.WithCache(cfg.Analysis.CacheEntries),
		analysis.WithFFTBackend(backend),
	)

	start = time.Now()
	if err := orchestrator.RecomputeAll(ctx, params); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	logger.Info("Analysis complete", logging.Fields{
		"channels": buffer.ChannelCount(),
		"elapsed":  time.Since(start),
	})

	return orchestrator, nil
}

// newRenderer builds one renderer per configured format
func newRenderer(cfg *config.Config) (analysis.Renderer, error) {
	var multi render.Multi

	for _, name := range cfg.Render.Formats {
		if strings.EqualFold(name, "png") {
			png := render.NewPNGRenderer(cfg.Render.OutputDir, cfg.Render.Prefix)
			png.Scale = cfg.Render.Scale
			multi = append(multi, png)
			continue
		}

		format, err := render.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		multi = append(multi, render.NewExporter(cfg.Render.OutputDir, cfg.Render.Prefix, format))
	}

	return multi, nil
}
