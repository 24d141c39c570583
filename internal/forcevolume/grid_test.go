package forcevolume

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The 2x3 reference grid used below is laid out as
//
//	0 1 2
//	3 4 5
func TestOrientationMapApply(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		orientation  Orientation
		expectedIDs  []int
		expectedRows int
		expectedCols int
	}{
		{"flip_horizontal", FlipHorizontal, []int{3, 4, 5, 0, 1, 2}, 2, 3},
		{"flip_vertical", FlipVertical, []int{2, 1, 0, 5, 4, 3}, 2, 3},
		{"rotate_ccw", RotateCCW, []int{2, 5, 1, 4, 0, 3}, 3, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewOrientationMap(2, 3)
			m.Apply(tc.orientation)

			assert.Equal(t, tc.expectedIDs, m.IDs())
			assert.Equal(t, tc.expectedRows, m.Rows())
			assert.Equal(t, tc.expectedCols, m.Cols())
		})
	}
}

func TestOrientationMapRoundTripBijection(t *testing.T) {
	t.Parallel()

	m := NewOrientationMap(3, 4)
	sequence := []Orientation{RotateCCW, FlipHorizontal, RotateCCW, FlipVertical, RotateCCW}
	for _, o := range sequence {
		m.Apply(o)

		seen := make(map[int]bool)
		for pos := 0; pos < m.Len(); pos++ {
			id, err := m.ToCanonical(pos)
			require.NoError(t, err)
			assert.False(t, seen[id], "canonical id %d mapped twice", id)
			seen[id] = true

			back, err := m.ToLinear(id)
			require.NoError(t, err)
			assert.Equal(t, pos, back)
		}
	}
}

func TestOrientationMapIdentities(t *testing.T) {
	t.Parallel()

	identity := NewOrientationMap(2, 3).IDs()

	m := NewOrientationMap(2, 3)
	for i := 0; i < 4; i++ {
		m.Apply(RotateCCW)
	}
	assert.Equal(t, identity, m.IDs(), "four quarter turns should be the identity")
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())

	m = NewOrientationMap(2, 3)
	m.Apply(FlipHorizontal)
	m.Apply(FlipHorizontal)
	assert.Equal(t, identity, m.IDs(), "double flip should be the identity")

	m = NewOrientationMap(2, 3)
	m.Apply(FlipVertical)
	m.Apply(FlipVertical)
	assert.Equal(t, identity, m.IDs())
}

func TestOrientationMapReset(t *testing.T) {
	t.Parallel()

	m := NewOrientationMap(2, 3)
	m.Apply(RotateCCW)
	m.Apply(FlipVertical)
	m.Reset()

	assert.Equal(t, NewOrientationMap(2, 3).IDs(), m.IDs())
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())
}

func TestOrientationMapOutOfRange(t *testing.T) {
	t.Parallel()

	m := NewOrientationMap(2, 2)

	_, err := m.ToCanonical(4)
	var unknown *UnknownPointError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 4, unknown.Index)
	assert.Equal(t, 4, unknown.Count)

	_, err = m.ToLinear(-1)
	require.True(t, errors.As(err, &unknown))
}

func TestOrientationMapRestore(t *testing.T) {
	t.Parallel()

	m := NewOrientationMap(2, 3)
	m.Apply(RotateCCW)
	saved := m.IDs()
	savedRows, savedCols := m.Rows(), m.Cols()

	restored := NewOrientationMap(2, 3)
	require.NoError(t, restored.Restore(saved, savedRows, savedCols))
	assert.Equal(t, saved, restored.IDs())
	assert.Equal(t, savedRows, restored.Rows())

	pos, err := restored.ToLinear(2)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
}

func TestOrientationMapRestoreRejectsBadMappings(t *testing.T) {
	t.Parallel()

	m := NewOrientationMap(2, 2)

	assert.Error(t, m.Restore([]int{0, 1, 2}, 2, 2), "wrong length")
	assert.Error(t, m.Restore([]int{0, 1, 2, 3}, 3, 2), "shape does not cover grid")
	assert.Error(t, m.Restore([]int{0, 1, 2, 9}, 2, 2), "id out of range")
	assert.Error(t, m.Restore([]int{0, 1, 2, 2}, 2, 2), "duplicate id")
}

func TestTransformFloats(t *testing.T) {
	t.Parallel()

	values := []float64{0, 1, 2, 3, 4, 5}

	assert.Equal(t, []float64{3, 4, 5, 0, 1, 2}, TransformFloats(values, 2, 3, FlipHorizontal))
	assert.Equal(t, []float64{2, 1, 0, 5, 4, 3}, TransformFloats(values, 2, 3, FlipVertical))
	assert.Equal(t, []float64{2, 5, 1, 4, 0, 3}, TransformFloats(values, 2, 3, RotateCCW))
}

func TestParseOrientation(t *testing.T) {
	t.Parallel()

	for _, o := range []Orientation{FlipHorizontal, FlipVertical, RotateCCW} {
		parsed, err := ParseOrientation(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}

	_, err := ParseOrientation("upsideDown")
	assert.Error(t, err)
}
