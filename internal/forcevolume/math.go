package forcevolume

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Linspace returns num evenly spaced values from start to stop inclusive.
// Returns nil for num <= 0 and a single-element slice for num == 1.
func Linspace(start, stop float64, num int) []float64 {
	if num <= 0 {
		return nil
	}
	if num == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, num), start, stop)
}

// Interp linearly interpolates the curve sampled at (xp, fp) at position x.
// The sample positions xp must be ascending. Positions outside the sampled
// range clamp to the first or last sample value.
func Interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if n == 0 || len(fp) != n {
		return math.NaN()
	}
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	i := sort.SearchFloat64s(xp, x)
	if xp[i] == x {
		return fp[i]
	}
	j := i - 1
	t := (x - xp[j]) / (xp[j+1] - xp[j])
	return fp[j] + t*(fp[j+1]-fp[j])
}

// InterpSlice maps Interp over every position in xs.
func InterpSlice(xs, xp, fp []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = Interp(x, xp, fp)
	}
	return out
}

// NanMin returns the smallest non-NaN value in xs, or NaN when there is none.
func NanMin(xs []float64) float64 {
	min := math.NaN()
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
	}
	return min
}

// NanMax returns the largest non-NaN value in xs, or NaN when there is none.
func NanMax(xs []float64) float64 {
	max := math.NaN()
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return max
}

// NanMean returns the arithmetic mean of the non-NaN values in xs, or NaN
// when there is none.
func NanMean(xs []float64) float64 {
	vals := filterNaN(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// NanStd returns the population standard deviation of the non-NaN values in
// xs, or NaN when there is none.
func NanStd(xs []float64) float64 {
	vals := filterNaN(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.PopStdDev(vals, nil)
}

func filterNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Derivative returns the sample-pair derivative dy/dx, one element per
// adjacent pair. Returns nil when the inputs differ in length or hold fewer
// than two samples.
func Derivative(y, x []float64) []float64 {
	if len(y) != len(x) || len(y) < 2 {
		return nil
	}
	out := make([]float64, len(y)-1)
	for i := range out {
		out[i] = (y[i+1] - y[i]) / (x[i+1] - x[i])
	}
	return out
}

// GaussianSmooth convolves xs with a normalized Gaussian kernel of the given
// standard deviation. The kernel radius is four sigma and the input is
// extended by edge reflection. Returns a copy for sigma <= 0.
func GaussianSmooth(xs []float64, sigma float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if sigma <= 0 {
		copy(out, xs)
		return out
	}
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for k := -radius; k <= radius; k++ {
		w := math.Exp(-0.5 * float64(k) * float64(k) / (sigma * sigma))
		kernel[k+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	for i := 0; i < n; i++ {
		var acc float64
		for k := -radius; k <= radius; k++ {
			acc += kernel[k+radius] * xs[reflectIndex(i+k, n)]
		}
		out[i] = acc
	}
	return out
}

// reflectIndex folds an out-of-range index back into [0, n) by mirroring at
// both edges. The edge sample itself is repeated.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - 1 - i
		}
	}
	return i
}

// ArgMax returns the index of the first occurrence of the largest value in
// xs, or -1 for an empty slice.
func ArgMax(xs []float64) int {
	if len(xs) == 0 {
		return -1
	}
	idx := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[idx] {
			idx = i
		}
	}
	return idx
}

// TrapezoidUnit integrates ys with the trapezoidal rule over a unit-spaced
// axis. Returns 0 for fewer than two samples.
func TrapezoidUnit(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	xs := Linspace(0, float64(len(ys)-1), len(ys))
	return integrate.Trapezoidal(xs, ys)
}
