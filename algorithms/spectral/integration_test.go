package spectral

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

func TestIntegrateIdentity(t *testing.T) {
	spec := randomSpectrogram(1, 9, 13)

	out, err := Integrate(spec, 1)
	require.NoError(t, err)
	assert.Same(t, spec, out)
	assert.Equal(t, spec.Data, out.Data)
}

func TestIntegrateColumnCount(t *testing.T) {
	tests := []struct {
		frames, group, want int
	}{
		{12, 3, 4},
		{13, 3, 5},
		{1, 4, 1},
		{5, 5, 1},
		{5, 8, 1},
		{100, 7, 15},
	}

	for _, tt := range tests {
		spec := randomSpectrogram(2, 5, tt.frames)
		out, err := Integrate(spec, tt.group)
		require.NoError(t, err)
		assert.Equal(t, tt.want, out.Frames, "frames=%d group=%d", tt.frames, tt.group)
		assert.Equal(t, spec.Bins, out.Bins)
		assert.Equal(t, spec.Hop*tt.group, out.Hop)
		for _, row := range out.Data {
			assert.Len(t, row, tt.want)
		}
	}
}

func TestIntegrateMatchesGroupedSum(t *testing.T) {
	const (
		bins   = 6
		frames = 12
		group  = 4
	)
	spec := randomSpectrogram(3, bins, frames)

	out, err := Integrate(spec, group)
	require.NoError(t, err)

	for k := range bins {
		for g := range frames / group {
			var want complex128
			for j := g * group; j < (g+1)*group; j++ {
				want += spec.Data[k][j]
			}
			assert.InDelta(t, 0, cmplx.Abs(want-out.Data[k][g]), 1e-12, "bin %d group %d", k, g)
		}
	}

	// Total magnitude of the grouped sums is preserved
	var wantTotal, gotTotal float64
	for k := range bins {
		for g := range frames / group {
			var sum complex128
			for j := g * group; j < (g+1)*group; j++ {
				sum += spec.Data[k][j]
			}
			wantTotal += cmplx.Abs(sum)
			gotTotal += cmplx.Abs(out.Data[k][g])
		}
	}
	assert.InDelta(t, wantTotal, gotTotal, 1e-9)
}

func TestIntegrateShortFinalGroup(t *testing.T) {
	spec := randomSpectrogram(4, 3, 7)

	out, err := Integrate(spec, 3)
	require.NoError(t, err)
	require.Equal(t, 3, out.Frames)

	for k := range spec.Bins {
		assert.InDelta(t, 0, cmplx.Abs(spec.Data[k][6]-out.Data[k][2]), 1e-15,
			"a single trailing frame forms its own group")
	}
}

func TestIntegrateIsCoherent(t *testing.T) {
	spec := NewComplexSpectrogram(1, 4)
	spec.Data[0] = []complex128{1, -1, 1i, -1i}

	out, err := Integrate(spec, 2)
	require.NoError(t, err)
	assert.Equal(t, []complex128{0, 0}, out.Data[0], "opposite phases cancel")
}

func TestIntegrateInvalid(t *testing.T) {
	spec := randomSpectrogram(5, 3, 4)
	for _, g := range []int{0, -1} {
		_, err := Integrate(spec, g)
		require.ErrorIs(t, err, common.ErrInvalidParameter)

		var ae *common.AnalysisError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "integration_count", ae.Parameter)
	}
}
