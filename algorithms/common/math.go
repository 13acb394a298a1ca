package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Matrix helpers shared by the spectral stages and the renderers. Spectrogram
// matrices legitimately contain -Inf (20*log10(0)), so anything that scans a
// matrix for statistics works on its finite values only.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample standard deviation using gonum
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sumSquares := floats.Dot(data, data)
	return math.Sqrt(sumSquares / float64(len(data)))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteValues flattens a matrix, keeping only finite values.
func FiniteValues(matrix [][]float64) []float64 {
	n := 0
	for _, row := range matrix {
		n += len(row)
	}

	out := make([]float64, 0, n)
	for _, row := range matrix {
		for _, v := range row {
			if IsFinite(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// FiniteRange returns the min and max finite values of a matrix. ok is false
// when the matrix has no finite value at all.
func FiniteRange(matrix [][]float64) (lo, hi float64, ok bool) {
	values := FiniteValues(matrix)
	if len(values) == 0 {
		return 0, 0, false
	}
	return floats.Min(values), floats.Max(values), true
}

// MaxFiniteIndex returns the index of the largest finite value, or -1 if
// there is none. Ties resolve to the lowest index.
func MaxFiniteIndex(data []float64) int {
	finite := make([]float64, 0, len(data))
	index := make([]int, 0, len(data))
	for i, v := range data {
		if IsFinite(v) {
			finite = append(finite, v)
			index = append(index, i)
		}
	}
	if len(finite) == 0 {
		return -1
	}
	return index[floats.MaxIdx(finite)]
}

// Column copies column j of a row-major matrix.
func Column(matrix [][]float64, j int) []float64 {
	col := make([]float64, len(matrix))
	for i, row := range matrix {
		col[i] = row[j]
	}
	return col
}

// CeilDiv returns ceil(a/b) for positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampInt constrains an integer to a range
func ClampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
