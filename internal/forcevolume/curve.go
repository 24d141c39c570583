package forcevolume

import "fmt"

// Segment is one branch of a force-distance cycle. X holds piezo positions,
// Y the matching deflection samples.
type Segment struct {
	X []float64
	Y []float64
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int { return len(s.X) }

// Clone returns a deep copy of the segment.
func (s Segment) Clone() Segment {
	return Segment{
		X: append([]float64(nil), s.X...),
		Y: append([]float64(nil), s.Y...),
	}
}

// ForceCurve is one grid point's force-distance measurement. Approach and
// Retract hold the raw branches of the cycle. X and Y carry the approach
// after baseline and contact point correction; when the correction fails
// they hold an unchanged copy of the raw approach and Correction.Ok is
// false.
type ForceCurve struct {
	Point      int
	Approach   Segment
	Retract    Segment
	X          []float64
	Y          []float64
	Correction Correction
}

// SplitCurve splits a full measurement cycle into its approach and retract
// branches at the first maximum of x. The retract branch is reversed into
// ascending piezo order. Either branch may come out nearly or fully empty
// when the maximum sits at an end of the cycle; downstream stages tolerate
// that.
func SplitCurve(x, y []float64) (approach, retract Segment, err error) {
	if len(x) != len(y) {
		return Segment{}, Segment{}, &MalformedCurveError{
			Point:  -1,
			Reason: fmt.Sprintf("length mismatch: %d x values, %d y values", len(x), len(y)),
		}
	}
	if len(x) < 2 {
		return Segment{}, Segment{}, &MalformedCurveError{
			Point:  -1,
			Reason: fmt.Sprintf("need at least 2 samples, got %d", len(x)),
		}
	}
	k := ArgMax(x)
	approach = Segment{
		X: append([]float64(nil), x[:k]...),
		Y: append([]float64(nil), y[:k]...),
	}
	retract = Segment{
		X: reversed(x[k:]),
		Y: reversed(y[k:]),
	}
	return approach, retract, nil
}

func reversed(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[len(xs)-1-i] = v
	}
	return out
}
