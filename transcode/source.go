package transcode

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

// Source picks a decoder by file extension: WAV, FLAC and MP3 are decoded
// in process, every other container goes through ffmpeg.
type Source struct {
	wav    *WAVSource
	flac   *FLACSource
	mp3    *MP3Source
	ffmpeg *FFmpegSource
	logger logging.Logger
}

// NewSource creates a Source. config is used for the ffmpeg fallback and may be nil.
func NewSource(config *DecoderConfig) *Source {
	return &Source{
		wav:    NewWAVSource(),
		flac:   NewFLACSource(),
		mp3:    NewMP3Source(),
		ffmpeg: NewFFmpegSource(config),
		logger: logging.WithFields(logging.Fields{
			"component": "audio_source",
		}),
	}
}

// Load implements analysis.AudioSource
func (s *Source) Load(ctx context.Context, path string) (*analysis.SampleBuffer, error) {
	return s.sourceFor(path).Load(ctx, path)
}

func (s *Source) sourceFor(path string) analysis.AudioSource {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return s.wav
	case ".flac":
		return s.flac
	case ".mp3":
		return s.mp3
	default:
		s.logger.Debug("Falling back to ffmpeg", logging.Fields{"path": path})
		return s.ffmpeg
	}
}

// checkFile returns FileNotFound when path does not name a regular file
func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.NewFileNotFound(path, err)
		}
		return common.NewDecodeError(path, err)
	}
	if info.IsDir() {
		return common.NewFileNotFound(path, errors.New("path is a directory"))
	}
	return nil
}

// Deinterleave splits frame-interleaved samples into per-channel slices.
// A trailing partial frame is dropped.
func Deinterleave(interleaved []float64, channels int) [][]float64 {
	if channels <= 0 {
		return nil
	}

	frames := len(interleaved) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	for i := range frames {
		frame := interleaved[i*channels : (i+1)*channels]
		for ch, v := range frame {
			out[ch][i] = v
		}
	}
	return out
}
