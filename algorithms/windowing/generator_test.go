package windowing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

func TestGenerateLength(t *testing.T) {
	for _, kind := range Kinds() {
		for _, length := range []int{1, 2, 7, 256, 1024} {
			coeffs, err := Generate(kind, length)
			require.NoError(t, err, "%s/%d", kind, length)
			assert.Len(t, coeffs, length, "%s/%d", kind, length)
		}
	}
}

func TestGenerateRectangularIsAllOnes(t *testing.T) {
	coeffs, err := Generate(Rectangular, 513)
	require.NoError(t, err)
	for i, c := range coeffs {
		assert.Equal(t, 1.0, c, "coefficient %d", i)
	}
}

func TestGenerateHanningMatchesGonum(t *testing.T) {
	const n = 255

	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	expected := window.Hann(ones)

	coeffs, err := Generate(Hanning, n)
	require.NoError(t, err)
	assert.InDeltaSlice(t, expected, coeffs, 1e-12)
}

func TestGenerateSymmetricFamilies(t *testing.T) {
	tests := []struct {
		kind     Kind
		endpoint float64
	}{
		{Hanning, 0.0},
		{Hamming, 0.08},
		{Blackman, 0.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			coeffs, err := Generate(tt.kind, 65)
			require.NoError(t, err)

			assert.InDelta(t, tt.endpoint, coeffs[0], 1e-12)
			assert.InDelta(t, tt.endpoint, coeffs[64], 1e-12)
			assert.InDelta(t, 1.0, coeffs[32], 1e-12, "odd-length windows peak at the centre")

			for i := range 32 {
				assert.InDelta(t, coeffs[i], coeffs[64-i], 1e-12, "symmetry at %d", i)
			}
		})
	}
}

func TestGenerateSinglePoint(t *testing.T) {
	for _, kind := range Kinds() {
		coeffs, err := Generate(kind, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{1.0}, coeffs, string(kind))
	}
}

func TestGenerateInvalid(t *testing.T) {
	for _, length := range []int{0, -1, -256} {
		_, err := Generate(Hanning, length)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInvalidParameter))

		var ae *common.AnalysisError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "window_length", ae.Parameter)
		assert.Equal(t, length, ae.Value)
	}

	_, err := Generate(Kind("kaiser"), 16)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"rectangular": Rectangular,
		"Rectangular": Rectangular,
		"hann":        Hanning,
		"HANNING":     Hanning,
		" hamming ":   Hamming,
		"blackman":    Blackman,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("triangle")
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestWindowGeneratorCaches(t *testing.T) {
	wg := NewWindowGenerator()

	w1, err := wg.Generate(Hamming, 128)
	require.NoError(t, err)
	w2, err := wg.Generate(Hamming, 128)
	require.NoError(t, err)
	assert.Same(t, w1, w2)
	assert.Equal(t, 1, wg.CacheSize())

	_, err = wg.Generate(Hamming, 0)
	require.Error(t, err)
	assert.Equal(t, 1, wg.CacheSize(), "failed generations are not cached")

	coeffs := w1.Coefficients()
	coeffs[0] = 42
	assert.NotEqual(t, 42.0, w1.Coefficients()[0], "coefficients are returned by copy")
}

func TestWindowApply(t *testing.T) {
	wg := NewWindowGenerator()
	w, err := wg.Generate(Hanning, 4)
	require.NoError(t, err)

	signal := []float64{2, 2, 2, 2}
	windowed, err := w.Apply(signal)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2, 2}, signal, "Apply leaves its input untouched")
	assert.InDelta(t, 0.0, windowed[0], 1e-12)
	assert.InDelta(t, 1.5, windowed[1], 1e-12)

	assert.Error(t, w.ApplyInPlace(make([]float64, 3)))
	assert.InDelta(t, 0.375, w.CoherentGain(), 1e-12)
}
