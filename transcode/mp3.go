package transcode

import (
	"context"
	"os"

	"github.com/faiface/beep/mp3"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/analysis"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

const mp3ChunkFrames = 4096

// MP3Source decodes MPEG-1/2 layer III files in process
type MP3Source struct {
	logger logging.Logger
}

// NewMP3Source creates an MP3 audio source
func NewMP3Source() *MP3Source {
	return &MP3Source{
		logger: logging.WithFields(logging.Fields{
			"component": "mp3_source",
		}),
	}
}

// Load implements analysis.AudioSource
func (m *MP3Source) Load(ctx context.Context, path string) (*analysis.SampleBuffer, error) {
	logger := m.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Load",
		"path":     path,
	})

	if err := checkFile(path); err != nil {
		logger.Error(err, "Cannot open audio file")
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewDecodeError(path, err)
	}

	// The streamer owns file from here on
	streamer, format, err := mp3.Decode(file)
	if err != nil {
		file.Close()
		err = common.NewDecodeError(path, err)
		logger.Error(err, "Rejected MP3 input")
		return nil, err
	}
	defer streamer.Close()

	channels := min(max(format.NumChannels, 1), 2)
	samples := make([][]float64, channels)
	if n := streamer.Len(); n > 0 {
		for ch := range samples {
			samples[ch] = make([]float64, 0, n)
		}
	}

	chunk := make([][2]float64, mp3ChunkFrames)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, ok := streamer.Stream(chunk)
		for _, frame := range chunk[:n] {
			for ch := range samples {
				samples[ch] = append(samples[ch], frame[ch])
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		err = common.NewDecodeError(path, err)
		logger.Error(err, "Failed to decode MP3 data")
		return nil, err
	}

	buffer, err := analysis.NewSampleBuffer(int(format.SampleRate), samples)
	if err != nil {
		return nil, common.NewDecodeError(path, err)
	}

	logger.Debug("MP3 decoded", logging.Fields{
		"sample_rate": buffer.SampleRate,
		"channels":    channels,
		"samples":     buffer.Len(),
	})

	return buffer, nil
}
