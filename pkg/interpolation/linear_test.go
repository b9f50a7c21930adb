package interpolation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinear(t *testing.T) {
	interp := NewLinear()
	xs := []float64{1, 2, 4}
	ys := []float64{10, 20, 0}

	t.Run("exact", func(t *testing.T) {
		require.Equal(t, ys, interp.Interpolate(xs, ys, xs))
	})

	t.Run("between", func(t *testing.T) {
		r := interp.Interpolate(xs, ys, []float64{1.5, 3, 3.5})
		require.InDelta(t, 15.0, r[0], 1e-12)
		require.InDelta(t, 10.0, r[1], 1e-12)
		require.InDelta(t, 5.0, r[2], 1e-12)
	})

	t.Run("clamp", func(t *testing.T) {
		r := interp.Interpolate(xs, ys, []float64{-100, 0.999, 4.001, 1e9})
		require.Equal(t, []float64{10, 10, 0, 0}, r)
	})

	t.Run("ties", func(t *testing.T) {
		xs := []float64{0, 1, 1, 2}
		ys := []float64{0, 5, 7, 9}
		r := interp.Interpolate(xs, ys, []float64{0.5, 1, 1.5})
		require.InDelta(t, 2.5, r[0], 1e-12)
		require.Equal(t, 5.0, r[1])
		require.InDelta(t, 8.0, r[2], 1e-12)
	})

	t.Run("single point", func(t *testing.T) {
		r := interp.Interpolate([]float64{3}, []float64{42}, []float64{0, 3, 6})
		require.Equal(t, []float64{42, 42, 42}, r)
	})

	t.Run("empty", func(t *testing.T) {
		r := interp.Interpolate(nil, nil, []float64{0, 1})
		require.Equal(t, []float64{0, 0}, r)
	})
}

func BenchmarkLinear(b *testing.B) {
	const n = 48000
	xs := make([]float64, n)
	ys := make([]float64, n)
	at := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) / n
		ys[i] = float64(i % 100)
		at[i] = (float64(i) + 0.3) / n
	}
	interp := NewLinear()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = interp.Interpolate(xs, ys, at)
	}
}
