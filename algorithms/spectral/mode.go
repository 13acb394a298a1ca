package spectral

import (
	"math"
	"math/cmplx"
	"strings"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

// Mode is a display transform from complex bins to real values
type Mode string

const (
	AmplitudeDB     Mode = "amplitude_db"
	AmplitudeLinear Mode = "amplitude_linear"
	PhaseRad        Mode = "phase_rad"
	PhaseDeg        Mode = "phase_deg"
)

// Modes returns every spectrum mode in display order; the first is the default.
func Modes() []Mode {
	return []Mode{AmplitudeDB, AmplitudeLinear, PhaseRad, PhaseDeg}
}

// ParseMode parses a spectrum mode name
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amplitude_db", "amplitude-db", "db":
		return AmplitudeDB, nil
	case "amplitude_linear", "amplitude-linear", "linear":
		return AmplitudeLinear, nil
	case "phase_rad", "phase-rad", "rad", "radians":
		return PhaseRad, nil
	case "phase_deg", "phase-deg", "deg", "degrees":
		return PhaseDeg, nil
	default:
		return "", common.NewInvalidParameter("spectrum_mode", s, "unsupported spectrum mode")
	}
}

func (m Mode) String() string {
	return string(m)
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case AmplitudeDB, AmplitudeLinear, PhaseRad, PhaseDeg:
		return true
	}
	return false
}

// Unit returns the axis unit for the mode
func (m Mode) Unit() string {
	switch m {
	case AmplitudeDB:
		return "dB"
	case AmplitudeLinear:
		return "linear"
	case PhaseRad:
		return "radians"
	case PhaseDeg:
		return "degrees"
	default:
		return ""
	}
}

// IsPhase reports whether the mode produces angles
func (m Mode) IsPhase() bool {
	return m == PhaseRad || m == PhaseDeg
}

// Apply transforms a single bin. AmplitudeDB yields -Inf for z == 0, which is
// a valid value, not an error.
func (m Mode) Apply(z complex128) float64 {
	switch m {
	case AmplitudeDB:
		return 20 * math.Log10(cmplx.Abs(z))
	case AmplitudeLinear:
		return cmplx.Abs(z)
	case PhaseRad:
		return phase(z)
	case PhaseDeg:
		p := phase(z)
		if p == math.Pi {
			return 180
		}
		return p * 180 / math.Pi
	default:
		return math.NaN()
	}
}

// phase returns atan2(imag, real) folded into (-pi, pi]. atan2 returns -pi
// for a negative real axis with a negative-zero imaginary part.
func phase(z complex128) float64 {
	p := math.Atan2(imag(z), real(z))
	if p == -math.Pi {
		return math.Pi
	}
	return p
}

// ApplyMode converts a complex spectrogram into a real [bins][frames] matrix
func ApplyMode(spec *ComplexSpectrogram, mode Mode) ([][]float64, error) {
	if !mode.Valid() {
		return nil, common.NewInvalidParameter("spectrum_mode", string(mode), "unsupported spectrum mode")
	}

	out := make([][]float64, spec.Bins)
	backing := make([]float64, spec.Bins*spec.Frames)
	for k, row := range spec.Data {
		dst := backing[k*spec.Frames : (k+1)*spec.Frames : (k+1)*spec.Frames]
		for j, z := range row {
			dst[j] = mode.Apply(z)
		}
		out[k] = dst
	}

	return out, nil
}
