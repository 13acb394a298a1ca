package spectral

import (
	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

// Integrate coherently sums contiguous, non-overlapping groups of groupSize
// frames. The last group may be shorter. Values are summed, not averaged, so
// a correlated signal grows roughly with groupSize and incoherent noise with
// sqrt(groupSize).
//
// A groupSize of 1 returns spec itself.
func Integrate(spec *ComplexSpectrogram, groupSize int) (*ComplexSpectrogram, error) {
	if groupSize <= 0 {
		return nil, common.NewInvalidParameter("integration_count", groupSize, "integration count must be positive")
	}
	if groupSize == 1 {
		return spec, nil
	}

	outFrames := common.CeilDiv(spec.Frames, groupSize)

	out := NewComplexSpectrogram(spec.Bins, outFrames)
	out.SampleRate = spec.SampleRate
	out.FFTSize = spec.FFTSize
	out.Hop = spec.Hop * groupSize

	for k, row := range spec.Data {
		dst := out.Data[k]
		for j, z := range row {
			dst[j/groupSize] += z
		}
	}

	return out, nil
}
