package windowing

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

// Kind identifies a window family
type Kind string

const (
	Rectangular Kind = "rectangular"
	Hanning     Kind = "hanning"
	Hamming     Kind = "hamming"
	Blackman    Kind = "blackman"
)

// Kinds returns every supported window family in display order.
func Kinds() []Kind {
	return []Kind{Rectangular, Hanning, Hamming, Blackman}
}

// ParseKind parses a window family name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rectangular", "rect", "boxcar":
		return Rectangular, nil
	case "hanning", "hann":
		return Hanning, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	default:
		return "", common.NewInvalidParameter("window_kind", s, "unsupported window type")
	}
}

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the canonical family names
func (k Kind) Valid() bool {
	switch k {
	case Rectangular, Hanning, Hamming, Blackman:
		return true
	}
	return false
}

// Window holds the coefficients of a generated window.
type Window struct {
	kind         Kind
	coefficients []float64
}

// Kind returns the window family
func (w *Window) Kind() Kind {
	return w.kind
}

// Size returns the window length
func (w *Window) Size() int {
	return len(w.coefficients)
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) ([]float64, error) {
	windowed := make([]float64, len(signal))
	copy(windowed, signal)
	if err := w.ApplyInPlace(windowed); err != nil {
		return nil, err
	}
	return windowed, nil
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != len(w.coefficients) {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), len(w.coefficients))
	}

	for i, c := range w.coefficients {
		signal[i] *= c
	}

	return nil
}

// CoherentGain returns the mean coefficient value
func (w *Window) CoherentGain() float64 {
	return common.Mean(w.coefficients)
}

// Energy returns the sum of squared coefficients
func (w *Window) Energy() float64 {
	energy := 0.0
	for _, c := range w.coefficients {
		energy += c * c
	}
	return energy
}
