package interpolation

// Interpolator reconstructs the values of the series (xs, ys) at the
// given points. xs must be non-decreasing and len(xs) == len(ys).
type Interpolator interface {
	Interpolate(xs, ys []float64, at []float64) []float64
}
