package forcevolume

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCurve(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 3, 2, 1, 0}
	y := []float64{10, 11, 12, 13, 14, 15, 16}

	approach, retract, err := SplitCurve(x, y)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2}, approach.X)
	assert.Equal(t, []float64{10, 11, 12}, approach.Y)
	assert.Equal(t, []float64{0, 1, 2, 3}, retract.X)
	assert.Equal(t, []float64{16, 15, 14, 13}, retract.Y)
}

func TestSplitCurve_MaxAtEnds(t *testing.T) {
	t.Parallel()

	// Maximum at the first sample leaves the approach empty.
	approach, retract, err := SplitCurve([]float64{5, 4, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0, approach.Len())
	assert.Equal(t, []float64{3, 4, 5}, retract.X)
	assert.Equal(t, []float64{3, 2, 1}, retract.Y)

	// Maximum at the last sample leaves a single-sample retract.
	approach, retract, err = SplitCurve([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, approach.X)
	assert.Equal(t, []float64{3}, retract.X)
	assert.Equal(t, []float64{6}, retract.Y)
}

func TestSplitCurve_FirstOfTiedMaxima(t *testing.T) {
	t.Parallel()

	// The split index is the first occurrence of the maximum.
	approach, retract, err := SplitCurve(
		[]float64{0, 3, 3, 0},
		[]float64{1, 2, 3, 4},
	)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, approach.X)
	assert.Equal(t, []float64{0, 3, 3}, retract.X)
	assert.Equal(t, []float64{4, 3, 2}, retract.Y)
}

func TestSplitCurve_Malformed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		x    []float64
		y    []float64
	}{
		{"length_mismatch", []float64{1, 2, 3}, []float64{1, 2}},
		{"single_sample", []float64{1}, []float64{1}},
		{"empty", nil, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := SplitCurve(tc.x, tc.y)
			require.Error(t, err)

			var malformed *MalformedCurveError
			assert.True(t, errors.As(err, &malformed))
		})
	}
}

func TestSplitCurve_CopiesInput(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 1}
	y := []float64{5, 6, 7, 8}
	approach, retract, err := SplitCurve(x, y)
	require.NoError(t, err)

	x[0] = 99
	y[3] = 99
	assert.Equal(t, []float64{0, 1}, approach.X)
	assert.Equal(t, []float64{8, 7}, retract.Y)
}

func TestSegmentClone(t *testing.T) {
	t.Parallel()

	s := Segment{X: []float64{1, 2}, Y: []float64{3, 4}}
	c := s.Clone()
	c.X[0] = 99
	c.Y[1] = 99

	assert.Equal(t, []float64{1, 2}, s.X)
	assert.Equal(t, []float64{3, 4}, s.Y)
	assert.Equal(t, 2, s.Len())
}
