package render

import (
	"image/color"
	"math"

	"github.com/RyanBlaney/sonido-spectra/algorithms/common"
)

// viridisStops are evenly spaced samples of the viridis colour map
var viridisStops = []color.RGBA{
	{68, 1, 84, 255},
	{72, 40, 120, 255},
	{62, 74, 137, 255},
	{49, 104, 142, 255},
	{38, 130, 142, 255},
	{31, 158, 137, 255},
	{53, 183, 121, 255},
	{109, 205, 89, 255},
	{180, 222, 44, 255},
	{253, 231, 37, 255},
}

var nonFiniteColor = color.RGBA{0, 0, 0, 255}

// colorScale maps values in [lo, hi] onto the colour map. Values outside the
// range are clamped; non-finite values are drawn black.
type colorScale struct {
	lo, hi float64
}

func (s colorScale) at(v float64) color.RGBA {
	if !common.IsFinite(v) {
		return nonFiniteColor
	}

	t := 0.0
	if s.hi > s.lo {
		t = common.Clamp((v-s.lo)/(s.hi-s.lo), 0, 1)
	}

	pos := t * float64(len(viridisStops)-1)
	i := int(math.Floor(pos))
	if i >= len(viridisStops)-1 {
		return viridisStops[len(viridisStops)-1]
	}
	frac := pos - float64(i)
	a, b := viridisStops[i], viridisStops[i+1]
	return color.RGBA{
		R: lerp8(a.R, b.R, frac),
		G: lerp8(a.G, b.G, frac),
		B: lerp8(a.B, b.B, frac),
		A: 255,
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
