package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

func binFrequencies(bins int, sampleRate float64) []float64 {
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * sampleRate / float64(2*(bins-1))
	}
	return freqs
}

func TestShapeOfSingleTone(t *testing.T) {
	freqs := binFrequencies(129, 8000)
	mags := make([]float64, 129)
	mags[32] = 64

	shape, err := ComputeShape(mags, freqs, DefaultRolloff)
	require.NoError(t, err)
	assert.InDelta(t, 1000, shape.CentroidHz, 1e-9)
	assert.InDelta(t, 0, shape.BandwidthHz, 1e-9)
	assert.InDelta(t, 1000, shape.RolloffHz, 1e-9)
	assert.InDelta(t, math.Sqrt(129), shape.Crest, 1e-9)
	assert.Less(t, shape.Flatness, 1e-6)
}

func TestShapeOfFlatSpectrum(t *testing.T) {
	freqs := binFrequencies(5, 8000)
	mags := []float64{1, 1, 1, 1, 1}

	shape, err := ComputeShape(mags, freqs, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2000, shape.CentroidHz, 1e-9)
	assert.InDelta(t, math.Sqrt(2e6), shape.BandwidthHz, 1e-6)
	assert.InDelta(t, 2000, shape.RolloffHz, 1e-9)
	assert.InDelta(t, 1, shape.Flatness, 1e-12)
	assert.InDelta(t, 1, shape.Crest, 1e-12)
}

func TestShapeOfSilence(t *testing.T) {
	shape, err := ComputeShape(make([]float64, 3), binFrequencies(3, 100), DefaultRolloff)
	require.NoError(t, err)
	assert.Equal(t, Shape{}, shape)
}

func TestShapeRejectsBadInput(t *testing.T) {
	_, err := ComputeShape(nil, nil, DefaultRolloff)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = ComputeShape([]float64{1, 2}, []float64{0}, DefaultRolloff)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = ComputeShape([]float64{1}, []float64{0}, 1.5)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestMagnitudes(t *testing.T) {
	mags, err := Magnitudes([]float64{0, 20, math.Inf(-1), math.NaN()}, AmplitudeDB)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 10, 0, 0}, mags, 1e-12)

	mags, err = Magnitudes([]float64{0.5, 2}, AmplitudeLinear)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 2}, mags)

	_, err = Magnitudes([]float64{0}, PhaseDeg)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}
