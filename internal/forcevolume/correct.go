package forcevolume

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// smoothingSigma is the Gaussian kernel width used to smooth the deflection
// derivative when locating the end of the zeroline.
const smoothingSigma = 10

// Correction records the outcome and diagnostics of the baseline and contact
// point correction for one curve. For curves the pipeline rejects, Ok is
// false, the index fields are -1 and the value fields NaN.
type Correction struct {
	Ok             bool
	RawStiffness   float64 // slope of the degree-1 fit over the raw approach
	RawOffset      float64 // intercept of the degree-1 fit
	EndOfZeroline  int     // last baseline sample index
	ZeroCrossing   int     // last sample at or below zero deflection
	PointOfContact float64 // piezo position of zero deflection, before shifting
}

func failedCorrection() Correction {
	return Correction{
		RawStiffness:   math.NaN(),
		RawOffset:      math.NaN(),
		EndOfZeroline:  -1,
		ZeroCrossing:   -1,
		PointOfContact: math.NaN(),
	}
}

// CorrectCurve zeroes the baseline of an approach segment and shifts its
// piezo axis so the point of contact sits at zero.
//
// The baseline is located by fitting a line through the whole segment,
// bounding the search at the first and last sample below that fit, narrowing
// the upper bound to just past the largest residual and taking the last
// position where the smoothed deflection derivative is still negative.
// Deflection is zeroed against a regression over the baseline; samples past
// the baseline are shifted by the regression value at its end. The point of
// contact is interpolated at zero deflection around the last non-positive
// sample.
//
// When any stage finds nothing to work with, the raw segment is kept
// unchanged and the returned Correction reports the curve as an artifact.
func CorrectCurve(x, y []float64) (cx, cy []float64, c Correction) {
	cx = append([]float64(nil), x...)
	cy = append([]float64(nil), y...)
	c = failedCorrection()

	n := len(x)
	if n < 2 || len(y) != n {
		return cx, cy, c
	}

	rawOffset, rawStiffness := stat.LinearRegression(x, y, nil, false)

	start, end := -1, -1
	for i := 0; i < n; i++ {
		if y[i] < rawOffset+rawStiffness*x[i] {
			if start < 0 {
				start = i
			}
			end = i
		}
	}
	if start < 0 || start >= end {
		return cx, cy, c
	}

	residual := make([]float64, n)
	for i := range residual {
		residual[i] = math.Abs(rawOffset + rawStiffness*x[i] - y[i])
	}
	diffMax := ArgMax(residual[start:end]) + start
	newEnd := int(float64(diffMax) + float64(end-diffMax)*0.05)

	smoothed := GaussianSmooth(Derivative(y, x), smoothingSigma)
	eoz := -1
	for i := start; i < newEnd; i++ {
		if smoothed[i] < 0 {
			eoz = i
		}
	}
	if eoz < 2 {
		return cx, cy, c
	}

	baseOffset, baseSlope := stat.LinearRegression(x[:eoz], y[:eoz], nil, false)
	for i := 0; i < eoz; i++ {
		cy[i] = y[i] - (baseOffset + baseSlope*x[i])
	}
	borderValue := baseOffset + baseSlope*x[eoz-1]
	for i := eoz; i < n; i++ {
		cy[i] = y[i] - borderValue
	}

	zc := eoz
	for i := eoz; i < n; i++ {
		if cy[i] <= 0 {
			zc = i
		}
	}

	lo, hi := zc-2, zc+2
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	poc := Interp(0, cy[lo:hi], x[lo:hi])

	for i := range cx {
		cx[i] = x[i] - poc
	}

	c = Correction{
		Ok:             true,
		RawStiffness:   rawStiffness,
		RawOffset:      rawOffset,
		EndOfZeroline:  eoz,
		ZeroCrossing:   zc,
		PointOfContact: poc,
	}
	return cx, cy, c
}
