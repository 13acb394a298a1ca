package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

func TestApplyModeDBMatchesLinear(t *testing.T) {
	spec := randomSpectrogram(21, 17, 9)

	db, err := ApplyMode(spec, AmplitudeDB)
	require.NoError(t, err)
	linear, err := ApplyMode(spec, AmplitudeLinear)
	require.NoError(t, err)

	for k := range spec.Bins {
		for j := range spec.Frames {
			require.NotZero(t, linear[k][j])
			assert.InDelta(t, 20*math.Log10(linear[k][j]), db[k][j], 1e-12)
			assert.GreaterOrEqual(t, linear[k][j], 0.0)
		}
	}
}

func TestApplyModeDegreesMatchRadians(t *testing.T) {
	spec := randomSpectrogram(22, 17, 9)

	rad, err := ApplyMode(spec, PhaseRad)
	require.NoError(t, err)
	deg, err := ApplyMode(spec, PhaseDeg)
	require.NoError(t, err)

	for k := range spec.Bins {
		for j := range spec.Frames {
			assert.InDelta(t, rad[k][j]*180/math.Pi, deg[k][j], 1e-9)

			assert.Greater(t, rad[k][j], -math.Pi)
			assert.LessOrEqual(t, rad[k][j], math.Pi)
			assert.Greater(t, deg[k][j], -180.0)
			assert.LessOrEqual(t, deg[k][j], 180.0)
		}
	}
}

func TestModeZeroMagnitude(t *testing.T) {
	assert.True(t, math.IsInf(AmplitudeDB.Apply(0), -1), "log10(0) is -Inf, not an error")
	assert.Equal(t, 0.0, AmplitudeLinear.Apply(0))
	assert.Equal(t, 0.0, PhaseRad.Apply(0))
	assert.Equal(t, 0.0, PhaseDeg.Apply(0))

	spec := NewComplexSpectrogram(2, 2)
	db, err := ApplyMode(spec, AmplitudeDB)
	require.NoError(t, err)
	for _, row := range db {
		for _, v := range row {
			assert.True(t, math.IsInf(v, -1))
		}
	}
}

func TestModeBranchCut(t *testing.T) {
	negZero := math.Copysign(0, -1)

	assert.Equal(t, math.Pi, PhaseRad.Apply(complex(-1, 0)))
	assert.Equal(t, math.Pi, PhaseRad.Apply(complex(-1, negZero)), "-pi folds to +pi")
	assert.Equal(t, 180.0, PhaseDeg.Apply(complex(-1, negZero)))
	assert.InDelta(t, -90.0, PhaseDeg.Apply(complex(0, -1)), 1e-12)
	assert.InDelta(t, 90.0, PhaseDeg.Apply(complex(0, 1)), 1e-12)
}

func TestModeKnownValues(t *testing.T) {
	z := complex(3, 4)
	assert.InDelta(t, 5.0, AmplitudeLinear.Apply(z), 1e-12)
	assert.InDelta(t, 20*math.Log10(5), AmplitudeDB.Apply(z), 1e-12)
	assert.InDelta(t, math.Atan2(4, 3), PhaseRad.Apply(z), 1e-12)
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"amplitude_db":     AmplitudeDB,
		"dB":               AmplitudeDB,
		"amplitude-linear": AmplitudeLinear,
		"linear":           AmplitudeLinear,
		"phase_rad":        PhaseRad,
		"radians":          PhaseRad,
		"PHASE_DEG":        PhaseDeg,
		"deg":              PhaseDeg,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("power")
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	_, err = ApplyMode(randomSpectrogram(1, 2, 2), Mode("power"))
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestModeUnits(t *testing.T) {
	assert.Equal(t, "dB", AmplitudeDB.Unit())
	assert.Equal(t, "linear", AmplitudeLinear.Unit())
	assert.Equal(t, "radians", PhaseRad.Unit())
	assert.Equal(t, "degrees", PhaseDeg.Unit())
	assert.Equal(t, AmplitudeDB, Modes()[0])
}
