package forcevolume

import "fmt"

// Orientation is a display-orientation change applied to the grid.
type Orientation int

const (
	// FlipHorizontal reverses the row order of the grid.
	FlipHorizontal Orientation = iota
	// FlipVertical reverses the column order of the grid.
	FlipVertical
	// RotateCCW rotates the grid a quarter turn counterclockwise and swaps
	// its dimensions.
	RotateCCW
)

var orientationNames = map[Orientation]string{
	FlipHorizontal: "flipHorizontal",
	FlipVertical:   "flipVertical",
	RotateCCW:      "rotateCCW",
}

func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// ParseOrientation resolves an orientation name as used by the HTTP layer.
func ParseOrientation(name string) (Orientation, error) {
	for o, n := range orientationNames {
		if n == name {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown orientation %q", name)
}

// OrientationMap tracks where every canonical grid point sits in the current
// display orientation. Positions are row-major linear indices into the
// display grid; CanonicalIds are row-major indices into the grid as it was
// imported. Both directions translate in O(1).
type OrientationMap struct {
	canonRows int
	canonCols int
	rows      int
	cols      int
	ids       []int // display position -> canonical id
	linear    []int // canonical id -> display position
}

// NewOrientationMap returns the identity map for a rows x cols grid.
func NewOrientationMap(rows, cols int) *OrientationMap {
	n := rows * cols
	m := &OrientationMap{
		canonRows: rows,
		canonCols: cols,
		rows:      rows,
		cols:      cols,
		ids:       make([]int, n),
		linear:    make([]int, n),
	}
	for i := 0; i < n; i++ {
		m.ids[i] = i
		m.linear[i] = i
	}
	return m
}

// Rows returns the display row count.
func (m *OrientationMap) Rows() int { return m.rows }

// Cols returns the display column count.
func (m *OrientationMap) Cols() int { return m.cols }

// Len returns the number of grid points.
func (m *OrientationMap) Len() int { return len(m.ids) }

// IDs returns a copy of the display-position to CanonicalId mapping.
func (m *OrientationMap) IDs() []int {
	return append([]int(nil), m.ids...)
}

// Apply reorders the map by the given orientation change. RotateCCW swaps
// the display dimensions.
func (m *OrientationMap) Apply(o Orientation) {
	m.ids = TransformInts(m.ids, m.rows, m.cols, o)
	if o == RotateCCW {
		m.rows, m.cols = m.cols, m.rows
	}
	m.rebuildReverse()
}

// Reset restores the identity mapping and the imported grid dimensions.
func (m *OrientationMap) Reset() {
	m.rows = m.canonRows
	m.cols = m.canonCols
	for i := range m.ids {
		m.ids[i] = i
		m.linear[i] = i
	}
}

// ToCanonical translates a display position to its CanonicalId.
func (m *OrientationMap) ToCanonical(position int) (int, error) {
	if position < 0 || position >= len(m.ids) {
		return 0, &UnknownPointError{Index: position, Count: len(m.ids)}
	}
	return m.ids[position], nil
}

// ToLinear translates a CanonicalId to its current display position.
func (m *OrientationMap) ToLinear(canonical int) (int, error) {
	if canonical < 0 || canonical >= len(m.linear) {
		return 0, &UnknownPointError{Index: canonical, Count: len(m.linear)}
	}
	return m.linear[canonical], nil
}

// Restore replaces the mapping wholesale, validating that ids is a bijection
// over the grid and that the display dimensions cover it. Used when
// replaying a saved session.
func (m *OrientationMap) Restore(ids []int, rows, cols int) error {
	if len(ids) != len(m.ids) {
		return fmt.Errorf("mapping has %d entries, grid has %d points", len(ids), len(m.ids))
	}
	if rows*cols != len(ids) {
		return fmt.Errorf("display shape %dx%d does not cover %d points", rows, cols, len(ids))
	}
	seen := make([]bool, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(ids) {
			return &UnknownPointError{Index: id, Count: len(ids)}
		}
		if seen[id] {
			return fmt.Errorf("mapping repeats point %d", id)
		}
		seen[id] = true
	}
	copy(m.ids, ids)
	m.rows = rows
	m.cols = cols
	m.rebuildReverse()
	return nil
}

func (m *OrientationMap) rebuildReverse() {
	for pos, id := range m.ids {
		m.linear[id] = pos
	}
}

// TransformInts returns a copy of the row-major grid values reordered by the
// given orientation change. The result of RotateCCW is laid out for the
// swapped dimensions.
func TransformInts(values []int, rows, cols int, o Orientation) []int {
	out := make([]int, len(values))
	switch o {
	case FlipHorizontal:
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				out[r*cols+c] = values[(rows-1-r)*cols+c]
			}
		}
	case FlipVertical:
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				out[r*cols+c] = values[r*cols+(cols-1-c)]
			}
		}
	case RotateCCW:
		for i := 0; i < cols; i++ {
			for j := 0; j < rows; j++ {
				out[i*rows+j] = values[j*cols+(cols-1-i)]
			}
		}
	default:
		copy(out, values)
	}
	return out
}

// TransformFloats is TransformInts for float64 grids.
func TransformFloats(values []float64, rows, cols int, o Orientation) []float64 {
	out := make([]float64, len(values))
	switch o {
	case FlipHorizontal:
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				out[r*cols+c] = values[(rows-1-r)*cols+c]
			}
		}
	case FlipVertical:
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				out[r*cols+c] = values[r*cols+(cols-1-c)]
			}
		}
	case RotateCCW:
		for i := 0; i < cols; i++ {
			for j := 0; j < rows; j++ {
				out[i*rows+j] = values[j*cols+(cols-1-i)]
			}
		}
	default:
		copy(out, values)
	}
	return out
}
