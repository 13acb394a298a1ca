package windowing

import (
	"sync"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

type cacheKey struct {
	kind   Kind
	length int
}

// WindowGenerator generates windows and caches them by (kind, length)
type WindowGenerator struct {
	logger logging.Logger

	mu    sync.Mutex
	cache map[cacheKey]*Window
}

// NewWindowGenerator creates a new window generator
func NewWindowGenerator() *WindowGenerator {
	return &WindowGenerator{
		logger: logging.WithFields(logging.Fields{
			"component": "window_generator",
		}),
		cache: make(map[cacheKey]*Window),
	}
}

// Generate returns the coefficients of the given window family and length.
// It is a pure function; use WindowGenerator when the same window is requested
// repeatedly.
func Generate(kind Kind, length int) ([]float64, error) {
	if length <= 0 {
		return nil, common.NewInvalidParameter("window_length", length, "window length must be positive")
	}

	coefficients := make([]float64, length)

	switch kind {
	case Rectangular:
		generateRectangular(coefficients)
	case Hanning:
		generateHanning(coefficients)
	case Hamming:
		generateHamming(coefficients)
	case Blackman:
		generateBlackman(coefficients)
	default:
		return nil, common.NewInvalidParameter("window_kind", string(kind), "unsupported window type")
	}

	return coefficients, nil
}

// Generate creates (or returns the cached) window of the given family and length.
// The returned Window is shared; its coefficients are only reachable by copy.
func (wg *WindowGenerator) Generate(kind Kind, length int) (*Window, error) {
	logger := wg.logger.WithFields(logging.Fields{
		"function":    "Generate",
		"window_type": kind,
		"window_size": length,
	})

	key := cacheKey{kind: kind, length: length}

	wg.mu.Lock()
	defer wg.mu.Unlock()

	if cached, exists := wg.cache[key]; exists {
		logger.Debug("Returning cached window")
		return cached, nil
	}

	coefficients, err := Generate(kind, length)
	if err != nil {
		logger.Error(err, "Invalid window configuration")
		return nil, err
	}

	window := &Window{
		kind:         kind,
		coefficients: coefficients,
	}
	wg.cache[key] = window

	logger.Debug("Window generated", logging.Fields{
		"energy":        window.Energy(),
		"coherent_gain": window.CoherentGain(),
	})

	return window, nil
}

// CacheSize returns the number of cached windows
func (wg *WindowGenerator) CacheSize() int {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	return len(wg.cache)
}
