package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

// DefaultRolloff is the share of spectral energy below the rolloff frequency
const DefaultRolloff = 0.85

// flatnessFloor bounds silent bins in the geometric mean
const flatnessFloor = 1e-10

// Shape summarizes the distribution of one magnitude spectrum
type Shape struct {
	CentroidHz  float64 `json:"centroid_hz" yaml:"centroid_hz"`
	BandwidthHz float64 `json:"bandwidth_hz" yaml:"bandwidth_hz"`
	RolloffHz   float64 `json:"rolloff_hz" yaml:"rolloff_hz"`
	Flatness    float64 `json:"flatness" yaml:"flatness"` // 0 tonal, 1 noise-like
	Crest       float64 `json:"crest" yaml:"crest"`       // peak over RMS
}

// Magnitudes recovers linear magnitudes from a column produced by mode.
// Phase modes carry no magnitude and are rejected.
func Magnitudes(values []float64, mode Mode) ([]float64, error) {
	out := make([]float64, len(values))

	switch mode {
	case AmplitudeLinear:
		copy(out, values)
	case AmplitudeDB:
		for i, v := range values {
			out[i] = math.Pow(10, v/20) // -Inf maps to 0
		}
	default:
		return nil, common.NewInvalidParameter("spectrum_mode", string(mode), "spectral shape needs an amplitude mode")
	}

	for i, v := range out {
		if !common.IsFinite(v) {
			out[i] = 0
		}
	}
	return out, nil
}

// ComputeShape describes the magnitude spectrum mags, where freqs[k] is the
// frequency of bin k in Hz. rolloff is the energy share, typically DefaultRolloff.
func ComputeShape(mags, freqs []float64, rolloff float64) (Shape, error) {
	if len(mags) == 0 || len(mags) != len(freqs) {
		return Shape{}, common.NewInvalidParameter("spectrum", len(mags), "magnitudes and frequencies must be non-empty and equally long")
	}
	if rolloff <= 0 || rolloff > 1 {
		return Shape{}, common.NewInvalidParameter("rolloff", rolloff, "must be in (0, 1]")
	}

	var shape Shape

	// Centroid and crest
	sum, sumSquares, peak := 0.0, 0.0, 0.0
	weighted := 0.0
	for k, m := range mags {
		sum += m
		sumSquares += m * m
		weighted += freqs[k] * m
		peak = math.Max(peak, m)
	}
	if sum == 0 {
		return shape, nil
	}
	shape.CentroidHz = weighted / sum
	shape.Crest = peak / common.RMS(mags)

	// Bandwidth around the centroid
	spread := 0.0
	for k, m := range mags {
		d := freqs[k] - shape.CentroidHz
		spread += d * d * m
	}
	shape.BandwidthHz = math.Sqrt(spread / sum)

	// Rolloff on cumulative energy
	target := rolloff * sumSquares
	cumulative := 0.0
	shape.RolloffHz = freqs[len(freqs)-1]
	for k, m := range mags {
		cumulative += m * m
		if cumulative >= target {
			shape.RolloffHz = freqs[k]
			break
		}
	}

	// Flatness: geometric over arithmetic mean
	logSum := 0.0
	for _, m := range mags {
		logSum += math.Log(math.Max(m, flatnessFloor))
	}
	mean := sum / float64(len(mags))
	shape.Flatness = math.Min(math.Exp(logSum/float64(len(mags)))/mean, 1)

	return shape, nil
}
