package planar

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func TestPlanarize(t *testing.T) {
	frames := [][]float64{
		{1, 2},
		{3, 4},
		{5, 6},
	}
	planes, err := Planarize(2, frames)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 3, 5}, {2, 4, 6}}, planes, spew.Sdump(frames))

	_, err = Planarize(3, frames)
	require.Error(t, err)

	_, err = Planarize(0, frames)
	require.Error(t, err)

	planes, err = Planarize[float64](1, nil)
	require.NoError(t, err)
	require.Len(t, planes, 1)
	require.Empty(t, planes[0])
}

func TestUnplanarize(t *testing.T) {
	planes := [][]int{{1, 3, 5}, {2, 4, 6}}
	r, err := Unplanarize(planes)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, r, spew.Sdump(planes))

	_, err = Unplanarize([][]int{{1, 2}, {3}})
	require.Error(t, err)

	_, err = Unplanarize[int](nil)
	require.Error(t, err)
}

func TestPlanarRoundTrip(t *testing.T) {
	frames := [][]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}
	planes, err := Planarize(3, frames)
	require.NoError(t, err)
	interleaved, err := Unplanarize(planes)
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, interleaved)
}
