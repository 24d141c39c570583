package units

import (
	"math"
	"testing"
)

func TestScale(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		wantValue  float64
		wantSymbol string
	}{
		{"nanometre range", 1.25e-8, 12.5, "n"},
		{"negative nanonewton", -5.2e-10, -0.52, "n"},
		{"piconewton range", 6.6e-11, 66.0, "p"},
		{"kilo range", 2000, 2.0, "k"},
		{"base range", 42, 42.0, ""},
		{"below femto", 5e-16, 0.5, "f"},
		{"zero", 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotValue, gotSymbol := Scale(tt.value)
			if math.Abs(gotValue-tt.wantValue) > 1e-9*math.Abs(tt.wantValue)+1e-12 {
				t.Errorf("Scale(%g) value = %g, want %g", tt.value, gotValue, tt.wantValue)
			}
			if gotSymbol != tt.wantSymbol {
				t.Errorf("Scale(%g) symbol = %q, want %q", tt.value, gotSymbol, tt.wantSymbol)
			}
		})
	}
}

func TestScaleNonFinite(t *testing.T) {
	if v, sym := Scale(math.NaN()); !math.IsNaN(v) || sym != "" {
		t.Errorf("Scale(NaN) = %g, %q, want NaN with empty symbol", v, sym)
	}
	if v, sym := Scale(math.Inf(1)); !math.IsInf(v, 1) || sym != "" {
		t.Errorf("Scale(+Inf) = %g, %q, want +Inf with empty symbol", v, sym)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		unit  string
		want  string
	}{
		{"nanometre", 1.25e-8, Meter, "12.5 nm"},
		{"nanonewton", -3e-9, Newton, "-3 nN"},
		{"metre", 1.5, Meter, "1.5 m"},
		{"zero", 0, Meter, "0 m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.value, tt.unit); got != tt.want {
				t.Errorf("Format(%g, %q) = %q, want %q", tt.value, tt.unit, got, tt.want)
			}
		})
	}
}

func TestAxisScale(t *testing.T) {
	factor, label := AxisScale([]float64{-3e-8, 1e-9, 2.5e-8}, Meter)
	if factor != 1e9 {
		t.Errorf("Expected factor 1e9, got %g", factor)
	}
	if label != "nm" {
		t.Errorf("Expected label nm, got %q", label)
	}

	// NaN entries must not drive the prefix choice.
	factor, label = AxisScale([]float64{math.NaN(), 4e-12}, Newton)
	if factor != 1e12 || label != "pN" {
		t.Errorf("Expected 1e12/pN, got %g/%q", factor, label)
	}
}

func TestAxisScaleDegenerate(t *testing.T) {
	if factor, label := AxisScale(nil, Meter); factor != 1 || label != Meter {
		t.Errorf("Expected 1/m for empty input, got %g/%q", factor, label)
	}
	if factor, label := AxisScale([]float64{math.NaN(), 0}, Meter); factor != 1 || label != Meter {
		t.Errorf("Expected 1/m for all-masked input, got %g/%q", factor, label)
	}
}
