package forcevolume

import (
	"errors"
	"fmt"
)

// ErrNoZeroCrossing reports a curve whose piezo values never drop below
// zero, leaving it without a pre-contact segment. Such a curve is excluded
// from the left branch of the average but stays in the dataset.
var ErrNoZeroCrossing = errors.New("curve has no zero crossing")

// MalformedCurveError reports a raw curve that cannot enter the analysis.
// The affected point is skipped; the import itself continues.
type MalformedCurveError struct {
	Point  int
	Reason string
}

func (e *MalformedCurveError) Error() string {
	if e.Point < 0 {
		return fmt.Sprintf("curve malformed: %s", e.Reason)
	}
	return fmt.Sprintf("curve at point %d malformed: %s", e.Point, e.Reason)
}

// ShapeMismatchError reports an imported array whose dimensions do not match
// the curve grid. It aborts the import operation that produced it.
type ShapeMismatchError struct {
	Name     string
	WantRows int
	WantCols int
	Got      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("array %q has %d values, grid is %dx%d",
		e.Name, e.Got, e.WantRows, e.WantCols)
}

// UnknownPointError reports a point index outside the grid. It indicates
// a caller bug rather than bad input data.
type UnknownPointError struct {
	Index int
	Count int
}

func (e *UnknownPointError) Error() string {
	return fmt.Sprintf("unknown point %d, grid has %d points", e.Index, e.Count)
}
