package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

// FLACSource decodes FLAC files frame by frame without shelling out
type FLACSource struct {
	logger logging.Logger
}

// NewFLACSource creates a FLAC audio source
func NewFLACSource() *FLACSource {
	return &FLACSource{
		logger: logging.WithFields(logging.Fields{
			"component": "flac_source",
		}),
	}
}

// Load implements analysis.AudioSource
func (f *FLACSource) Load(ctx context.Context, path string) (*analysis.SampleBuffer, error) {
	logger := f.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Load",
		"path":     path,
	})

	if err := checkFile(path); err != nil {
		logger.Error(err, "Cannot open audio file")
		return nil, err
	}

	stream, err := flac.ParseFile(path)
	if err != nil {
		err = common.NewDecodeError(path, err)
		logger.Error(err, "Rejected FLAC input")
		return nil, err
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels <= 0 || bitDepth <= 0 || bitDepth > 32 {
		return nil, common.NewDecodeError(path, fmt.Errorf("unsupported stream layout: %d channels, %d bits", channels, bitDepth))
	}

	samples := make([][]float64, channels)
	if info.NSamples > 0 {
		for ch := range samples {
			samples[ch] = make([]float64, 0, info.NSamples)
		}
	}

	scale := float64(int64(1) << (bitDepth - 1))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			err = common.NewDecodeError(path, err)
			logger.Error(err, "Failed to decode FLAC frame")
			return nil, err
		}

		for ch, subframe := range frame.Subframes {
			if ch >= channels {
				break
			}
			for _, s := range subframe.Samples {
				samples[ch] = append(samples[ch], float64(s)/scale)
			}
		}
	}

	buffer, err := analysis.NewSampleBuffer(int(info.SampleRate), samples)
	if err != nil {
		return nil, common.NewDecodeError(path, err)
	}

	logger.Debug("FLAC decoded", logging.Fields{
		"sample_rate": buffer.SampleRate,
		"channels":    channels,
		"bit_depth":   bitDepth,
		"samples":     buffer.Len(),
	})

	return buffer, nil
}
