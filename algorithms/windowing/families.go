package windowing

import "math"

// All families use the symmetric form: the denominator is N-1, so the first
// and last coefficients are equal. A single-point window is [1].

func generateRectangular(coefficients []float64) {
	for i := range coefficients {
		coefficients[i] = 1.0
	}
}

func generateHanning(coefficients []float64) {
	cosineSum(coefficients, 0.5, 0.5, 0)
}

func generateHamming(coefficients []float64) {
	cosineSum(coefficients, 0.54, 0.46, 0)
}

func generateBlackman(coefficients []float64) {
	cosineSum(coefficients, 0.42, 0.5, 0.08)
}

// cosineSum fills a0 - a1*cos(x) + a2*cos(2x), x = 2*pi*n/(N-1)
func cosineSum(coefficients []float64, a0, a1, a2 float64) {
	N := len(coefficients)
	if N == 1 {
		coefficients[0] = 1.0
		return
	}

	denominator := float64(N - 1)
	for i := range N {
		arg := 2 * math.Pi * float64(i) / denominator
		coefficients[i] = a0 - a1*math.Cos(arg) + a2*math.Cos(2*arg)
	}
}
