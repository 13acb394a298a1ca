package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

// WAVSource decodes integer PCM WAV files. Samples are scaled to [-1, 1)
// by the source bit depth.
type WAVSource struct {
	logger logging.Logger
}

// NewWAVSource creates a WAV audio source
func NewWAVSource() *WAVSource {
	return &WAVSource{
		logger: logging.WithFields(logging.Fields{
			"component": "wav_source",
		}),
	}
}

// Load implements analysis.AudioSource
func (w *WAVSource) Load(ctx context.Context, path string) (*analysis.SampleBuffer, error) {
	logger := w.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Load",
		"path":     path,
	})

	if err := checkFile(path); err != nil {
		logger.Error(err, "Cannot open audio file")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewDecodeError(path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		err := common.NewDecodeError(path, errors.New("invalid WAV file"))
		logger.Error(err, "Rejected WAV input")
		return nil, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		err = common.NewDecodeError(path, fmt.Errorf("could not read PCM buffer: %w", err))
		logger.Error(err, "Failed to decode WAV data")
		return nil, err
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, common.NewDecodeError(path, errors.New("missing channel layout"))
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, common.NewDecodeError(path, fmt.Errorf("unsupported bit depth %d", bitDepth))
	}

	scale := float64(int64(1) << (bitDepth - 1))
	interleaved := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		interleaved[i] = float64(v) / scale
	}

	buffer, err := analysis.NewSampleBuffer(buf.Format.SampleRate, Deinterleave(interleaved, buf.Format.NumChannels))
	if err != nil {
		return nil, common.NewDecodeError(path, err)
	}

	logger.Debug("WAV decoded", logging.Fields{
		"sample_rate": buffer.SampleRate,
		"channels":    buffer.ChannelCount(),
		"bit_depth":   bitDepth,
		"samples":     buffer.Len(),
	})

	return buffer, nil
}
