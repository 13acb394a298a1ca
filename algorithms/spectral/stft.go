package spectral

import (
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

// STFT provides Short-Time Fourier Transform functionality.
//
// Framing is trimmed: frame i covers samples [i*hop, i*hop+fftSize) and only
// fully contained windows are produced, so frames = (N-fftSize)/hop + 1 and
// frame i starts at i*hop/sampleRate seconds. Trailing samples that do not
// fill a window are dropped; nothing is zero-padded.
type STFT struct {
	fft    *FFT
	logger logging.Logger
}

// STFTConfig holds the transform parameters for one channel
type STFTConfig struct {
	FFTSize    int `json:"fft_size"`
	Hop        int `json:"hop"`
	SampleRate int `json:"sample_rate"`
}

// ComplexSpectrogram is a one-sided complex time-frequency matrix laid out
// as Data[bin][frame].
type ComplexSpectrogram struct {
	Data       [][]complex128 `json:"-"`
	Bins       int            `json:"bins"`
	Frames     int            `json:"frames"`
	SampleRate int            `json:"sample_rate"`
	FFTSize    int            `json:"fft_size"`
	Hop        int            `json:"hop"` // samples between consecutive columns
}

// NewComplexSpectrogram allocates a zeroed [bins][frames] matrix
func NewComplexSpectrogram(bins, frames int) *ComplexSpectrogram {
	data := make([][]complex128, bins)
	backing := make([]complex128, bins*frames)
	for k := range data {
		data[k] = backing[k*frames : (k+1)*frames : (k+1)*frames]
	}
	return &ComplexSpectrogram{
		Data:   data,
		Bins:   bins,
		Frames: frames,
	}
}

// FreqResolution returns the bin spacing in Hz
func (cs *ComplexSpectrogram) FreqResolution() float64 {
	return float64(cs.SampleRate) / float64(cs.FFTSize)
}

// TimeResolution returns the column spacing in seconds
func (cs *ComplexSpectrogram) TimeResolution() float64 {
	return float64(cs.Hop) / float64(cs.SampleRate)
}

// NewSTFT creates a new STFT calculator using the default FFT backend
func NewSTFT() *STFT {
	return NewSTFTWithFFT(NewFFT())
}

// NewSTFTWithFFT creates a new STFT calculator on top of the given FFT
func NewSTFTWithFFT(fft *FFT) *STFT {
	return &STFT{
		fft: fft,
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
			"backend":   fft.Backend(),
		}),
	}
}

// Validate checks an STFT configuration against a signal length
func (c STFTConfig) Validate(signalLength int) error {
	if c.FFTSize <= 0 {
		return common.NewInvalidParameter("fft_size", c.FFTSize, "FFT size must be positive")
	}
	if c.Hop <= 0 {
		return common.NewInvalidParameter("hop", c.Hop, "hop size must be positive")
	}
	if c.SampleRate <= 0 {
		return common.NewInvalidParameter("sample_rate", c.SampleRate, "sample rate must be positive")
	}
	if c.FFTSize > signalLength {
		return common.NewInvalidParameter("fft_size", c.FFTSize, "FFT size exceeds channel sample count")
	}
	return nil
}

// FrameCount returns the number of trimmed frames for a signal of length n.
// It returns 0 when the window does not fit.
func FrameCount(n, fftSize, hop int) int {
	if fftSize <= 0 || hop <= 0 || fftSize > n {
		return 0
	}
	return (n-fftSize)/hop + 1
}

// FrameTime returns the start time in seconds of frame i
func FrameTime(i, hop, sampleRate int) float64 {
	return float64(i) * float64(hop) / float64(sampleRate)
}

// Transform computes the one-sided STFT of samples. window supplies both the
// coefficients and the FFT size.
func (s *STFT) Transform(samples, window []float64, hop, sampleRate int) (*ComplexSpectrogram, error) {
	config := STFTConfig{
		FFTSize:    len(window),
		Hop:        hop,
		SampleRate: sampleRate,
	}

	logger := s.logger.WithFields(logging.Fields{
		"function":      "Transform",
		"fft_size":      config.FFTSize,
		"hop":           hop,
		"signal_length": len(samples),
	})

	if err := config.Validate(len(samples)); err != nil {
		logger.Error(err, "Invalid STFT configuration")
		return nil, err
	}

	windowSize := config.FFTSize
	numFrames := FrameCount(len(samples), windowSize, hop)
	freqBins := windowSize/2 + 1

	result := NewComplexSpectrogram(freqBins, numFrames)
	result.SampleRate = sampleRate
	result.FFTSize = windowSize
	result.Hop = hop

	numWorkers := s.getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hop
				for i, w := range window {
					frameBuffer[i] = samples[start+i] * w
				}

				spectrum := s.fft.OneSided(frameBuffer)
				for k := range freqBins {
					result.Data[k][frameIdx] = spectrum[k]
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	logger.Debug("STFT computed", logging.Fields{
		"frames":          numFrames,
		"bins":            freqBins,
		"workers":         numWorkers,
		"freq_resolution": result.FreqResolution(),
		"time_resolution": result.TimeResolution(),
	})

	return result, nil
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	var workers int
	switch {
	case numFrames < 100:
		// For small workloads, don't over-parallelize
		workers = min(numCPU/2, numFrames)
	case numFrames < 1000:
		workers = min(numCPU, 8)
	default:
		workers = numCPU
	}

	return max(workers, 1)
}
