package forcevolume

import (
	"fmt"
	"math"
	"math/rand"
)

// maxSyntheticSamples caps runaway sweeps from inconsistent parameters.
const maxSyntheticSamples = 1 << 20

// MaterialParams describe the virtual tip-sample system of the synthetic
// generator.
type MaterialParams struct {
	// SpringConstant is the cantilever spring constant in N/m.
	SpringConstant float64
	// TipRadius is the probe tip radius in m.
	TipRadius float64
	// ContactModulus is the combined elastic modulus of tip and sample
	// in Pa.
	ContactModulus float64
	// Hamaker is the Hamaker constant of the tip-sample pairing in J.
	Hamaker float64
}

// DefaultMaterialParams returns a stiff cantilever on a glassy sample.
func DefaultMaterialParams() MaterialParams {
	return MaterialParams{
		SpringConstant: 40,
		TipRadius:      1e-6,
		ContactModulus: 3e9,
		Hamaker:        66e-21,
	}
}

// JumpToContact returns the deflection threshold at which the tip snaps
// onto the surface.
func (p MaterialParams) JumpToContact() float64 {
	return -math.Cbrt(p.Hamaker * p.TipRadius / (3 * p.SpringConstant))
}

func (p MaterialParams) validate() error {
	if p.SpringConstant <= 0 || p.TipRadius <= 0 || p.ContactModulus <= 0 || p.Hamaker <= 0 {
		return fmt.Errorf("material parameters must be positive: %+v", p)
	}
	return nil
}

// SweepParams describe the piezo ramp of the virtual measurement.
type SweepParams struct {
	// StartPosition is the piezo position at the start of the approach
	// in m. It must lie below the contact point at zero.
	StartPosition float64
	// StepSize is the piezo increment per sample in m.
	StepSize float64
	// MaxDeflection is the trigger threshold that ends the sweep, in m.
	MaxDeflection float64
}

// DefaultSweepParams returns the reference ramp: 10 nm below contact in
// 0.2 nm steps up to a 30 nm deflection trigger.
func DefaultSweepParams() SweepParams {
	return SweepParams{
		StartPosition: -10e-9,
		StepSize:      0.2e-9,
		MaxDeflection: 30e-9,
	}
}

func (p SweepParams) validate() error {
	if p.StartPosition >= 0 {
		return fmt.Errorf("sweep must start below contact, got %g", p.StartPosition)
	}
	if p.StepSize <= 0 {
		return fmt.Errorf("sweep step must be positive, got %g", p.StepSize)
	}
	if p.MaxDeflection <= 0 {
		return fmt.Errorf("deflection trigger must be positive, got %g", p.MaxDeflection)
	}
	return nil
}

// SyntheticParams arrange ideal curves into a measurement grid.
type SyntheticParams struct {
	Rows int
	Cols int
	// Noise is the standard deviation of Gaussian deflection noise in m.
	Noise float64
	// VirtualDeflection tilts the baseline by the given slope, imitating
	// the optical crosstalk a real instrument shows.
	VirtualDeflection float64
	// Topography is the piezo offset between the first and last row in m.
	// Points in between follow a linear gradient.
	Topography float64
	// Seed feeds the noise generator.
	Seed int64
}

// GenerateIdealCurve synthesizes one noise-free approach: a van der Waals
// attraction ramp until the jump to contact, a linear snap-in through the
// contact point, then the Hertzian contact response up to the deflection
// trigger.
func GenerateIdealCurve(material MaterialParams, sweep SweepParams) (x, y []float64, err error) {
	if err := material.validate(); err != nil {
		return nil, nil, err
	}
	if err := sweep.validate(); err != nil {
		return nil, nil, err
	}

	jtc := material.JumpToContact()
	x = []float64{sweep.StartPosition}
	y = []float64{0}
	index := 0

	// The attractive pull grows as the gap closes, until the gradient
	// exceeds the spring constant and the tip snaps down. The sample that
	// overshoots the snap threshold is dropped again.
	for y[len(y)-1] >= jtc {
		if len(y) > maxSyntheticSamples {
			return nil, nil, fmt.Errorf("sweep from %g never reaches the jump to contact", sweep.StartPosition)
		}
		index++
		z := sweep.StartPosition + sweep.StepSize*float64(index)
		gap := y[len(y)-1] - z
		x = append(x, z)
		y = append(y, -material.Hamaker*material.TipRadius/(6*gap*gap*material.SpringConstant))
	}
	index--
	x = x[:len(x)-1]
	y = y[:len(y)-1]

	// After the snap the tip rides the surface, so the deflection follows
	// the piezo linearly through the contact point.
	for y[index] <= 0 {
		index++
		z := sweep.StartPosition + sweep.StepSize*float64(index)
		x = append(x, z)
		y = append(y, z)
	}

	// In contact the cantilever load balances the Hertzian response.
	b := math.Sqrt(material.TipRadius) * material.ContactModulus
	for y[len(y)-1] <= sweep.MaxDeflection {
		if len(y) > maxSyntheticSamples {
			return nil, nil, fmt.Errorf("sweep from %g never reaches the deflection trigger", sweep.StartPosition)
		}
		index++
		z := sweep.StartPosition + sweep.StepSize*float64(index)
		x = append(x, z)
		y = append(y, solveContact(material.SpringConstant, b, z))
	}
	return x, y, nil
}

// solveContact finds the deflection d with kc*d = b*(c-d)^(3/2), the
// equilibrium of cantilever load and Hertzian indentation at piezo
// position c > 0. The balance is monotone in d, so bisection on [0, c]
// converges to full precision.
func solveContact(kc, b, c float64) float64 {
	lo, hi := 0.0, c
	for i := 0; i < 80; i++ {
		mid := 0.5 * (lo + hi)
		if kc*mid < b*math.Pow(c-mid, 1.5) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// GenerateMeasurement builds a synthetic measurement grid around the ideal
// curve: every point gets a full approach+retract cycle with an optional
// per-row topography offset, baseline tilt and Gaussian noise. The applied
// offsets are recorded in the "topographyOffset" image.
func GenerateMeasurement(material MaterialParams, sweep SweepParams, p SyntheticParams) (Measurement, error) {
	if p.Rows <= 0 || p.Cols <= 0 {
		return Measurement{}, fmt.Errorf("invalid grid %dx%d", p.Rows, p.Cols)
	}
	ix, iy, err := GenerateIdealCurve(material, sweep)
	if err != nil {
		return Measurement{}, err
	}

	rng := rand.New(rand.NewSource(p.Seed))
	points := p.Rows * p.Cols
	curves := make([]RawCurve, points)
	offsets := make([]float64, points)
	n := len(ix)

	for point := 0; point < points; point++ {
		var offset float64
		if p.Rows > 1 {
			offset = p.Topography * float64(point/p.Cols) / float64(p.Rows-1)
		}
		offsets[point] = offset

		x := make([]float64, 0, 2*n-1)
		y := make([]float64, 0, 2*n-1)
		for i := 0; i < n; i++ {
			x = append(x, ix[i]+offset)
			y = append(y, iy[i])
		}
		for i := n - 2; i >= 0; i-- {
			x = append(x, ix[i]+offset)
			y = append(y, iy[i])
		}
		for i := range y {
			y[i] += p.VirtualDeflection * (x[i] - x[0])
			if p.Noise > 0 {
				y[i] += rng.NormFloat64() * p.Noise
			}
		}
		curves[point] = RawCurve{X: x, Y: y}
	}

	return Measurement{
		Name:   fmt.Sprintf("synthetic-%dx%d", p.Rows, p.Cols),
		Rows:   p.Rows,
		Cols:   p.Cols,
		Curves: curves,
		Images: map[string][]float64{"topographyOffset": offsets},
	}, nil
}
