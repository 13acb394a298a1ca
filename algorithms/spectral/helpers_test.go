package spectral

import (
	"math"
	"math/rand/v2"
)

// sine returns n samples of amplitude*sin(2*pi*freq*t + phase)
func sine(freq, phase, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = amplitude * math.Sin(2*math.Pi*freq*t+phase)
	}
	return out
}

// noise returns n deterministic uniform samples in [-1, 1)
func noise(seed uint64, n int) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = 2*r.Float64() - 1
	}
	return out
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// randomSpectrogram builds a [bins][frames] matrix of deterministic values
func randomSpectrogram(seed uint64, bins, frames int) *ComplexSpectrogram {
	values := noise(seed, 2*bins*frames)
	spec := NewComplexSpectrogram(bins, frames)
	spec.SampleRate = 48000
	spec.FFTSize = 2 * (bins - 1)
	spec.Hop = spec.FFTSize
	for k := range bins {
		for j := range frames {
			idx := 2 * (k*frames + j)
			spec.Data[k][j] = complex(values[idx], values[idx+1])
		}
	}
	return spec
}
