package interpolation

import (
	"sort"
)

type linear struct{}

// NewLinear returns a piecewise-linear Interpolator.
//
// Points at or before xs[0] get ys[0], points at or after the last x
// get the last y (no extrapolation). A point that coincides with an
// original x gets the corresponding original y exactly; on tied xs the
// first of them wins.
func NewLinear() Interpolator {
	return linear{}
}

func (linear) Interpolate(xs, ys []float64, at []float64) []float64 {
	result := make([]float64, len(at))
	if len(xs) == 0 {
		return result
	}
	last := len(xs) - 1
	for i, x := range at {
		result[i] = interpolateAt(xs, ys, last, x)
	}
	return result
}

func interpolateAt(xs, ys []float64, last int, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[last] {
		return ys[last]
	}

	// k is the first index with xs[k] >= x; 0 < k <= last here.
	k := sort.SearchFloat64s(xs, x)
	if xs[k] == x {
		return ys[k]
	}

	x0, x1 := xs[k-1], xs[k]
	y0, y1 := ys[k-1], ys[k]
	w := (x - x0) / (x1 - x0)
	return y0 + w*(y1-y0)
}
