package spectral

import (
	"strings"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

// Backend selects the FFT implementation used by the STFT
type Backend string

const (
	// BackendGoDSP uses mjibson/go-dsp, which handles every size including
	// non-powers of two.
	BackendGoDSP Backend = "go-dsp"
	// BackendGonum uses gonum's planned real FFT; plans are reused per size.
	BackendGonum Backend = "gonum"
)

// ParseBackend parses an FFT backend name
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "go-dsp", "godsp":
		return BackendGoDSP, nil
	case "gonum":
		return BackendGonum, nil
	default:
		return "", common.NewInvalidParameter("fft_backend", s, "unsupported FFT backend")
	}
}

// FFT computes one-sided real-input transforms
type FFT struct {
	backend Backend

	// gonum plans are not safe for concurrent use, so they are pooled per size
	mu    sync.Mutex
	plans map[int]*sync.Pool
}

// NewFFT creates a new FFT calculator using go-dsp
func NewFFT() *FFT {
	return NewFFTWithBackend(BackendGoDSP)
}

// NewFFTWithBackend creates a new FFT calculator for the given backend
func NewFFTWithBackend(backend Backend) *FFT {
	if backend == "" {
		backend = BackendGoDSP
	}
	return &FFT{
		backend: backend,
		plans:   make(map[int]*sync.Pool),
	}
}

// Backend returns the backend in use
func (f *FFT) Backend() Backend {
	return f.backend
}

// OneSided returns bins [0, len(x)/2] of the DFT of x. It is safe for
// concurrent use.
func (f *FFT) OneSided(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	bins := len(x)/2 + 1

	if f.backend == BackendGonum {
		pool := f.planPool(len(x))
		plan := pool.Get().(*fourier.FFT)
		defer pool.Put(plan)
		return plan.Coefficients(make([]complex128, bins), x)
	}

	return fft.FFTReal(x)[:bins]
}

func (f *FFT) planPool(n int) *sync.Pool {
	f.mu.Lock()
	defer f.mu.Unlock()

	pool, ok := f.plans[n]
	if !ok {
		pool = &sync.Pool{
			New: func() any { return fourier.NewFFT(n) },
		}
		f.plans[n] = pool
	}
	return pool
}
