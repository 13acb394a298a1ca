package spectral

import (
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
	"github.com/RyanBlaney/sonido-spectra/logging"
)

// PhaseDisplayMin and PhaseDisplayMax are the fixed display bounds for phase
// differentials. Values outside them are expected; see PhaseDifferential.
const (
	PhaseDisplayMin = -180.0
	PhaseDisplayMax = 180.0
)

// PhaseDifferential returns phase_a - phase_b in degrees for every
// time-frequency bin of two equally long channels, at full STFT frame
// resolution. No integration is applied and the result is not wrapped, so
// values in (-360, 360) occur where the two phases straddle the branch cut.
//
// If b's phase leads a's by +90 degrees the result is -90.
func (s *STFT) PhaseDifferential(a, b, window []float64, hop, sampleRate int) ([][]float64, error) {
	logger := s.logger.WithFields(logging.Fields{
		"function": "PhaseDifferential",
		"fft_size": len(window),
		"hop":      hop,
	})

	if len(a) != len(b) {
		err := common.NewInvalidParameter("channel_length", len(b), "phase differential channels must have equal length")
		logger.Error(err, "Mismatched channel lengths", logging.Fields{"length_a": len(a)})
		return nil, err
	}

	var specA, specB *ComplexSpectrogram

	var g errgroup.Group
	g.Go(func() error {
		var err error
		specA, err = s.Transform(a, window, hop, sampleRate)
		return err
	})
	g.Go(func() error {
		var err error
		specB, err = s.Transform(b, window, hop, sampleRate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	phaseA, err := ApplyMode(specA, PhaseDeg)
	if err != nil {
		return nil, err
	}
	phaseB, err := ApplyMode(specB, PhaseDeg)
	if err != nil {
		return nil, err
	}

	for k, row := range phaseA {
		for j := range row {
			row[j] -= phaseB[k][j]
		}
	}

	logger.Debug("Phase differential computed", logging.Fields{
		"bins":   specA.Bins,
		"frames": specA.Frames,
	})

	return phaseA, nil
}
