// Package plot renders force-volume state to PNG files: per-channel
// heatmaps, the averaged force curve with its stddev envelope and an
// overlay of the corrected curves.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/2Puck/sofa/internal/forcevolume"
	"github.com/2Puck/sofa/internal/units"
)

// Renderer writes PNG snapshots of a force volume into one output
// directory.
type Renderer struct {
	mu        sync.Mutex
	outputDir string
}

// NewRenderer creates the output directory and returns a renderer bound
// to it.
func NewRenderer(outputDir string) (*Renderer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Renderer{outputDir: outputDir}, nil
}

// OutputDir returns the directory the renderer writes into.
func (r *Renderer) OutputDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputDir
}

// RenderAll writes a heatmap per channel and imported image, the average
// plot and the curve overlay. Returns the number of files written.
func (r *Renderer) RenderAll(v *forcevolume.ForceVolume) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, c := range v.Channels() {
		heat, rows, cols, err := v.Heatmap(c.ID)
		if err != nil {
			return count, err
		}
		file := filepath.Join(r.outputDir, fmt.Sprintf("channel_%s.png", c.ID))
		if err := SaveHeatmap(file, fmt.Sprintf("%s - %s", v.Name(), c.ID), heat, rows, cols); err != nil {
			return count, fmt.Errorf("channel %s: %w", c.ID, err)
		}
		count++
	}

	for _, img := range v.Images() {
		heat, rows, cols, err := v.ImageHeatmap(img.Name)
		if err != nil {
			return count, err
		}
		file := filepath.Join(r.outputDir, fmt.Sprintf("image_%s.png", img.Name))
		if err := SaveHeatmap(file, fmt.Sprintf("%s - %s", v.Name(), img.Name), heat, rows, cols); err != nil {
			return count, fmt.Errorf("image %s: %w", img.Name, err)
		}
		count++
	}

	if avg := v.Average(); !avg.Empty() {
		file := filepath.Join(r.outputDir, "average.png")
		if err := SaveAverage(file, v.Name()+" - average", avg); err != nil {
			return count, fmt.Errorf("average: %w", err)
		}
		count++
	}

	file := filepath.Join(r.outputDir, "curves.png")
	if err := SaveCurves(file, v.Name()+" - corrected curves", v.Curves()); err != nil {
		return count, fmt.Errorf("curves: %w", err)
	}
	count++

	return count, nil
}

// displayGrid adapts a row-major display slice to the plotter grid
// interface. Display row 0 renders at the top.
type displayGrid struct {
	data []float64
	rows int
	cols int
}

func (g displayGrid) Dims() (c, r int) { return g.cols, g.rows }
func (g displayGrid) X(c int) float64  { return float64(c) }
func (g displayGrid) Y(r int) float64  { return float64(r) }
func (g displayGrid) Z(c, r int) float64 {
	return g.data[(g.rows-1-r)*g.cols+c]
}

// SaveHeatmap writes a channel or image matrix as a heatmap PNG. NaN
// cells stay unpainted, so masked points show as gaps.
func SaveHeatmap(file, title string, data []float64, rows, cols int) error {
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return fmt.Errorf("heatmap shape %dx%d does not fit %d values", rows, cols, len(data))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"

	h := plotter.NewHeatMap(displayGrid{data: data, rows: rows, cols: cols}, palette.Heat(16, 1))
	// The color scale must span finite values only; a NaN bound would
	// break the palette lookup for every cell.
	h.Min, h.Max = finiteRange(data)
	p.Add(h)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}

// SaveAverage writes the averaged force curve with a dashed stddev
// envelope.
func SaveAverage(file, title string, avg *forcevolume.AverageResult) error {
	if avg == nil || avg.Empty() {
		return fmt.Errorf("average is empty")
	}

	x := append(append([]float64(nil), avg.LeftX...), avg.RightX...)
	y := append(append([]float64(nil), avg.LeftY...), avg.RightY...)
	dev := append(append([]float64(nil), avg.LeftStdDev...), avg.RightStdDev...)

	xScale, xUnit := units.AxisScale(x, units.Meter)
	yScale, yUnit := units.AxisScale(y, units.Meter)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "piezo (" + xUnit + ")"
	p.Y.Label.Text = "deflection (" + yUnit + ")"

	mean, err := plotter.NewLine(xyPoints(x, y, nil, 0, xScale, yScale))
	if err != nil {
		return err
	}
	if len(mean.XYs) == 0 {
		return fmt.Errorf("average has no finite samples")
	}
	mean.Width = vg.Points(1.5)
	mean.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	p.Add(mean)
	p.Legend.Add("average", mean)

	upper, err := plotter.NewLine(xyPoints(x, y, dev, 1, xScale, yScale))
	if err != nil {
		return err
	}
	lower, err := plotter.NewLine(xyPoints(x, y, dev, -1, xScale, yScale))
	if err != nil {
		return err
	}
	gray := color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 255}
	for _, line := range []*plotter.Line{upper, lower} {
		line.Width = vg.Points(1)
		line.Color = gray
		line.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(line)
	}
	p.Legend.Add("stddev", upper)

	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save average plot: %w", err)
	}
	return nil
}

// SaveCurves writes an overlay of the corrected curves. Empty placeholder
// curves are skipped. The legend is only added while it stays readable.
func SaveCurves(file, title string, curves []*forcevolume.ForceCurve) error {
	var drawable []*forcevolume.ForceCurve
	var xAll, yAll []float64
	for _, c := range curves {
		if len(c.X) > 0 {
			drawable = append(drawable, c)
			xAll = append(xAll, c.X...)
			yAll = append(yAll, c.Y...)
		}
	}
	if len(drawable) == 0 {
		return fmt.Errorf("no curves to draw")
	}

	xScale, xUnit := units.AxisScale(xAll, units.Meter)
	yScale, yUnit := units.AxisScale(yAll, units.Meter)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "piezo (" + xUnit + ")"
	p.Y.Label.Text = "deflection (" + yUnit + ")"

	colors := lineColors(len(drawable))
	for i, c := range drawable {
		line, err := plotter.NewLine(xyPoints(c.X, c.Y, nil, 0, xScale, yScale))
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		if len(drawable) <= 12 {
			p.Legend.Add(fmt.Sprintf("point %d", c.Point), line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save curves plot: %w", err)
	}
	return nil
}

// xyPoints builds line data from x and y, offset by sign*dev when dev is
// given and scaled to the axis units. Pairs with a non-finite component
// are dropped so a partially masked array still draws.
func xyPoints(x, y, dev []float64, sign, xScale, yScale float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		yi := y[i]
		if dev != nil {
			yi += sign * dev[i]
		}
		if math.IsNaN(x[i]) || math.IsNaN(yi) || math.IsInf(x[i], 0) || math.IsInf(yi, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i] * xScale, Y: yi * yScale})
	}
	return pts
}

// finiteRange returns the min and max over the finite entries, widened to
// a non-degenerate interval.
func finiteRange(values []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min > max {
		return 0, 1
	}
	if min == max {
		return min, min + 1
	}
	return min, max
}

// lineColors creates a palette of distinct colors for curve overlays.
func lineColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir returns a timestamped output directory for one
// measurement: <baseDir>/<name>/<timestamp>.
func MakePlotOutputDir(baseDir, name string) string {
	ts := FormatTimestamp(time.Now())
	if name != "" {
		return filepath.Join(baseDir, name, ts)
	}
	return filepath.Join(baseDir, "volume_"+ts)
}
