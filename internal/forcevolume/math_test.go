package forcevolume

import (
	"math"
	"testing"
)

func TestLinspace(t *testing.T) {
	testCases := []struct {
		name     string
		start    float64
		stop     float64
		num      int
		expected []float64
	}{
		{"zero_points", 0, 1, 0, nil},
		{"negative_points", 0, 1, -3, nil},
		{"single_point", 2.5, 9, 1, []float64{2.5}},
		{"two_points", 0, 1, 2, []float64{0, 1}},
		{"five_points", 0, 1, 5, []float64{0, 0.25, 0.5, 0.75, 1}},
		{"descending", 1, -1, 3, []float64{1, 0, -1}},
		{"constant", 4, 4, 3, []float64{4, 4, 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Linspace(tc.start, tc.stop, tc.num)
			if len(result) != len(tc.expected) {
				t.Fatalf("Length mismatch: expected %d, got %d", len(tc.expected), len(result))
			}
			for i, v := range result {
				if math.Abs(v-tc.expected[i]) > 1e-12 {
					t.Errorf("Value mismatch at index %d: expected %f, got %f", i, tc.expected[i], v)
				}
			}
		})
	}
}

func TestInterp(t *testing.T) {
	xp := []float64{0, 1, 2, 4}
	fp := []float64{0, 10, 20, 40}

	testCases := []struct {
		name     string
		x        float64
		expected float64
	}{
		{"exact_knot", 1, 10},
		{"midpoint", 0.5, 5},
		{"wide_interval", 3, 30},
		{"clamp_left", -5, 0},
		{"clamp_right", 9, 40},
		{"first_knot", 0, 0},
		{"last_knot", 4, 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Interp(tc.x, xp, fp)
			if math.Abs(result-tc.expected) > 1e-12 {
				t.Errorf("Expected %f, got %f", tc.expected, result)
			}
		})
	}
}

func TestInterp_DegenerateInputs(t *testing.T) {
	if v := Interp(1, nil, nil); !math.IsNaN(v) {
		t.Errorf("Expected NaN for empty samples, got %f", v)
	}
	if v := Interp(1, []float64{0, 1}, []float64{0}); !math.IsNaN(v) {
		t.Errorf("Expected NaN for mismatched samples, got %f", v)
	}
	// Duplicate knots must not divide by zero.
	v := Interp(1, []float64{0, 1, 1, 2}, []float64{0, 5, 7, 8})
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("Expected finite value at duplicate knot, got %f", v)
	}
}

func TestInterpSlice(t *testing.T) {
	xp := []float64{0, 2}
	fp := []float64{0, 4}
	result := InterpSlice([]float64{-1, 0.5, 1, 3}, xp, fp)
	expected := []float64{0, 1, 2, 4}
	if len(result) != len(expected) {
		t.Fatalf("Length mismatch: expected %d, got %d", len(expected), len(result))
	}
	for i, v := range result {
		if math.Abs(v-expected[i]) > 1e-12 {
			t.Errorf("Value mismatch at index %d: expected %f, got %f", i, expected[i], v)
		}
	}
}

func TestNanMinMax(t *testing.T) {
	nan := math.NaN()
	testCases := []struct {
		name        string
		input       []float64
		expectedMin float64
		expectedMax float64
	}{
		{"plain", []float64{3, -1, 2}, -1, 3},
		{"with_nan", []float64{nan, 5, nan, -2}, -2, 5},
		{"single", []float64{7}, 7, 7},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if v := NanMin(tc.input); v != tc.expectedMin {
				t.Errorf("NanMin: expected %f, got %f", tc.expectedMin, v)
			}
			if v := NanMax(tc.input); v != tc.expectedMax {
				t.Errorf("NanMax: expected %f, got %f", tc.expectedMax, v)
			}
		})
	}

	if v := NanMin([]float64{nan, nan}); !math.IsNaN(v) {
		t.Errorf("NanMin of all-NaN should be NaN, got %f", v)
	}
	if v := NanMax(nil); !math.IsNaN(v) {
		t.Errorf("NanMax of empty should be NaN, got %f", v)
	}
}

func TestNanMeanStd(t *testing.T) {
	nan := math.NaN()

	mean := NanMean([]float64{1, nan, 3})
	if math.Abs(mean-2) > 1e-12 {
		t.Errorf("NanMean: expected 2, got %f", mean)
	}

	// Population standard deviation of {2, 4} is 1.
	std := NanStd([]float64{2, nan, 4})
	if math.Abs(std-1) > 1e-12 {
		t.Errorf("NanStd: expected 1, got %f", std)
	}

	if v := NanStd([]float64{5}); v != 0 {
		t.Errorf("NanStd of single value should be 0, got %f", v)
	}
	if v := NanMean([]float64{nan}); !math.IsNaN(v) {
		t.Errorf("NanMean of all-NaN should be NaN, got %f", v)
	}
	if v := NanStd(nil); !math.IsNaN(v) {
		t.Errorf("NanStd of empty should be NaN, got %f", v)
	}
}

func TestDerivative(t *testing.T) {
	y := []float64{0, 2, 6, 6}
	x := []float64{0, 1, 2, 4}
	result := Derivative(y, x)
	expected := []float64{2, 4, 0}
	if len(result) != len(expected) {
		t.Fatalf("Length mismatch: expected %d, got %d", len(expected), len(result))
	}
	for i, v := range result {
		if math.Abs(v-expected[i]) > 1e-12 {
			t.Errorf("Value mismatch at index %d: expected %f, got %f", i, expected[i], v)
		}
	}

	if v := Derivative([]float64{1}, []float64{1}); v != nil {
		t.Errorf("Expected nil for single sample, got %v", v)
	}
	if v := Derivative([]float64{1, 2}, []float64{1}); v != nil {
		t.Errorf("Expected nil for mismatched lengths, got %v", v)
	}
}

func TestGaussianSmooth(t *testing.T) {
	// A constant signal stays constant under a normalized kernel.
	constant := []float64{3, 3, 3, 3, 3, 3, 3, 3}
	smoothed := GaussianSmooth(constant, 2)
	for i, v := range smoothed {
		if math.Abs(v-3) > 1e-9 {
			t.Errorf("Constant signal changed at index %d: got %f", i, v)
		}
	}

	// Smoothing reduces the peak of an impulse and preserves its mass.
	impulse := make([]float64, 41)
	impulse[20] = 1
	smoothed = GaussianSmooth(impulse, 3)
	if smoothed[20] >= 1 {
		t.Errorf("Peak should shrink, got %f", smoothed[20])
	}
	var sum float64
	for _, v := range smoothed {
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("Mass should be preserved, got %f", sum)
	}

	// Symmetric input yields symmetric output.
	for i := 0; i < 20; i++ {
		if math.Abs(smoothed[20-i]-smoothed[20+i]) > 1e-12 {
			t.Errorf("Asymmetry at offset %d: %f vs %f", i, smoothed[20-i], smoothed[20+i])
		}
	}
}

func TestGaussianSmooth_Degenerate(t *testing.T) {
	if out := GaussianSmooth(nil, 2); len(out) != 0 {
		t.Errorf("Expected empty output, got %v", out)
	}

	in := []float64{1, 2, 3}
	out := GaussianSmooth(in, 0)
	for i, v := range out {
		if v != in[i] {
			t.Errorf("Sigma 0 should copy input, index %d: got %f", i, v)
		}
	}

	out = GaussianSmooth([]float64{5}, 10)
	if len(out) != 1 || math.Abs(out[0]-5) > 1e-9 {
		t.Errorf("Single sample should survive smoothing, got %v", out)
	}
}

func TestReflectIndex(t *testing.T) {
	testCases := []struct {
		name     string
		i        int
		n        int
		expected int
	}{
		{"in_range", 2, 5, 2},
		{"just_below", -1, 5, 0},
		{"two_below", -2, 5, 1},
		{"just_above", 5, 5, 4},
		{"two_above", 6, 5, 3},
		{"far_below", -6, 5, 4},
		{"single_element", 17, 1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := reflectIndex(tc.i, tc.n); got != tc.expected {
				t.Errorf("reflectIndex(%d, %d): expected %d, got %d", tc.i, tc.n, tc.expected, got)
			}
		})
	}
}

func TestArgMax(t *testing.T) {
	testCases := []struct {
		name     string
		input    []float64
		expected int
	}{
		{"empty", nil, -1},
		{"single", []float64{3}, 0},
		{"plain", []float64{1, 5, 2}, 1},
		{"first_of_ties", []float64{1, 5, 5, 2}, 1},
		{"max_at_end", []float64{1, 2, 9}, 2},
		{"all_negative", []float64{-3, -1, -2}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ArgMax(tc.input); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestTrapezoidUnit(t *testing.T) {
	testCases := []struct {
		name     string
		input    []float64
		expected float64
	}{
		{"too_short", []float64{4}, 0},
		{"flat", []float64{2, 2, 2}, 4},
		{"ramp", []float64{0, 1, 2, 3}, 4.5},
		{"negative", []float64{-1, -1}, -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := TrapezoidUnit(tc.input)
			if math.Abs(got-tc.expected) > 1e-12 {
				t.Errorf("Expected %f, got %f", tc.expected, got)
			}
		})
	}
}
