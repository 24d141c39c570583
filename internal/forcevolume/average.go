package forcevolume

import "errors"

// DefaultNumberOfDataPoints is the grid resolution used for the averaged
// curve when no explicit value is configured.
const DefaultNumberOfDataPoints = 2000

// AverageParams configures the average calculation.
type AverageParams struct {
	// NumberOfDataPoints is the number of interpolation slots per branch.
	// Values <= 0 fall back to DefaultNumberOfDataPoints.
	NumberOfDataPoints int
}

// AverageResult is the averaged approach curve built from the active
// points. The left branch covers the pre-contact range on a shared piezo
// grid; the right branch covers the contact range on a shared deflection
// grid, with the averaged piezo positions in RightX. The standard
// deviations are per-slot population values over the contributing curves.
// An all-inactive grid produces an empty result.
type AverageResult struct {
	LeftX       []float64
	LeftY       []float64
	LeftStdDev  []float64
	RightX      []float64
	RightY      []float64
	RightStdDev []float64
}

// Empty reports whether the result holds no averaged data.
func (r *AverageResult) Empty() bool {
	return len(r.LeftX) == 0 && len(r.RightY) == 0
}

// splitIndex returns the index of the last sample with negative piezo
// position. Curves that never reach below zero have no pre-contact segment
// and report ErrNoZeroCrossing.
func splitIndex(x []float64) (int, error) {
	k := -1
	for i, v := range x {
		if v < 0 {
			k = i
		}
	}
	if k < 0 {
		return 0, ErrNoZeroCrossing
	}
	return k, nil
}

// ComputeAverage interpolates every active curve onto two shared grids and
// averages them slot by slot. Curves without a zero crossing contribute to
// the right branch only. The result is freshly allocated; callers own it.
func ComputeAverage(curves []*ForceCurve, reg *PointRegistry, params AverageParams) *AverageResult {
	n := params.NumberOfDataPoints
	if n <= 0 {
		n = DefaultNumberOfDataPoints
	}

	var active []*ForceCurve
	for _, curve := range curves {
		if reg.IsActive(curve.Point) && len(curve.X) > 0 {
			active = append(active, curve)
		}
	}
	if len(active) == 0 {
		return &AverageResult{}
	}

	xMin := NanMin(active[0].X)
	yMax := NanMax(active[0].Y)
	for _, curve := range active[1:] {
		if v := NanMin(curve.X); v < xMin {
			xMin = v
		}
		if v := NanMax(curve.Y); v > yMax {
			yMax = v
		}
	}

	leftGrid := Linspace(xMin, 0, n)
	rightGrid := Linspace(0, yMax, n)

	leftRows := make([][]float64, 0, len(active))
	rightRows := make([][]float64, 0, len(active))
	for _, curve := range active {
		k, err := splitIndex(curve.X)
		if errors.Is(err, ErrNoZeroCrossing) {
			k = 0
		}
		leftRows = append(leftRows, InterpSlice(leftGrid, curve.X[:k], curve.Y[:k]))
		rightRows = append(rightRows, InterpSlice(rightGrid, curve.Y[k:], curve.X[k:]))
	}

	result := &AverageResult{
		LeftX:       leftGrid,
		LeftY:       make([]float64, n),
		LeftStdDev:  make([]float64, n),
		RightX:      make([]float64, n),
		RightY:      rightGrid,
		RightStdDev: make([]float64, n),
	}

	slot := make([]float64, len(active))
	for i := 0; i < n; i++ {
		for j, row := range leftRows {
			slot[j] = row[i]
		}
		result.LeftY[i] = NanMean(slot)
		result.LeftStdDev[i] = NanStd(slot)

		for j, row := range rightRows {
			slot[j] = row[i]
		}
		result.RightX[i] = NanMean(slot)
		result.RightStdDev[i] = NanStd(slot)
	}

	return result
}
