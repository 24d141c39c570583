// Package units scales physical quantities to SI prefixes for display
package units

import (
	"fmt"
	"math"
)

// Base units used across the analysis
const (
	Meter  = "m"
	Newton = "N"
)

// siPrefixes is ordered from largest to smallest factor so Scale can pick
// the first prefix the value reaches.
var siPrefixes = []struct {
	factor float64
	symbol string
}{
	{1e12, "T"},
	{1e9, "G"},
	{1e6, "M"},
	{1e3, "k"},
	{1, ""},
	{1e-3, "m"},
	{1e-6, "µ"},
	{1e-9, "n"},
	{1e-12, "p"},
	{1e-15, "f"},
}

// Scale returns value divided by the SI prefix factor that keeps the
// mantissa in [1, 1000), together with the prefix symbol. Zero and
// non-finite values come back unscaled with an empty symbol.
func Scale(value float64) (float64, string) {
	if value == 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return value, ""
	}
	abs := math.Abs(value)
	for _, p := range siPrefixes {
		if abs >= p.factor {
			return value / p.factor, p.symbol
		}
	}
	last := siPrefixes[len(siPrefixes)-1]
	return value / last.factor, last.symbol
}

// Format renders value with an SI prefix, e.g. 1.25e-8 with unit "m"
// becomes "12.5 nm".
func Format(value float64, unit string) string {
	scaled, symbol := Scale(value)
	return fmt.Sprintf("%.4g %s%s", scaled, symbol, unit)
}

// AxisScale picks one prefix for a whole axis from its largest finite
// magnitude. It returns the multiplier to apply to every value and the
// prefixed unit for the axis label. Empty or all-NaN input keeps the
// base unit.
func AxisScale(values []float64, unit string) (float64, string) {
	maxAbs := 0.0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if abs := math.Abs(v); abs > maxAbs {
			maxAbs = abs
		}
	}
	if maxAbs == 0 {
		return 1, unit
	}
	for _, p := range siPrefixes {
		if maxAbs >= p.factor {
			return 1 / p.factor, p.symbol + unit
		}
	}
	last := siPrefixes[len(siPrefixes)-1]
	return 1 / last.factor, last.symbol + unit
}
