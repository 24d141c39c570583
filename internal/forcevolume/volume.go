// Package forcevolume holds the in-memory analysis engine for force-distance
// measurement grids. A measurement is imported once into a ForceVolume;
// every later operation (deactivating points, moving histogram thresholds,
// reorienting the display, averaging) is a synchronous in-memory transform
// on that volume. The engine itself is single-threaded; callers that serve
// it concurrently serialize access at their own layer.
package forcevolume

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/2Puck/sofa/internal/monitoring"
)

// Params holds the tunable analysis parameters.
type Params struct {
	// NumberOfDataPoints is the grid resolution of the averaged curve.
	NumberOfDataPoints int
	// NumberOfBins is the histogram resolution.
	NumberOfBins int
}

// DefaultParams returns the parameter defaults.
func DefaultParams() Params {
	return Params{
		NumberOfDataPoints: DefaultNumberOfDataPoints,
		NumberOfBins:       DefaultNumberOfBins,
	}
}

// RawCurve is one imported measurement cycle.
type RawCurve struct {
	X []float64
	Y []float64
}

// Measurement is the import payload for one force-volume grid: per-point
// raw curves in row-major point order plus optional named per-point scalar
// arrays recorded alongside the curves.
type Measurement struct {
	Name   string
	Rows   int
	Cols   int
	Curves []RawCurve
	Images map[string][]float64
}

// ImageChannel is an imported per-point scalar array. Like derived channels
// it keeps its canonical source untouched and a working copy for the
// display orientation.
type ImageChannel struct {
	Name       string
	SourceData []float64
	Data       []float64
}

// Reset discards the working copy and restores the imported values.
func (c *ImageChannel) Reset() {
	c.Data = append([]float64(nil), c.SourceData...)
}

// SessionState is the restorable analysis state of a volume. It carries
// everything needed to replay a session onto a freshly imported volume
// without re-running the import.
type SessionState struct {
	Name        string
	Rows        int
	Cols        int
	DisplayRows int
	DisplayCols int
	MapIDs      []int
	InactiveIDs []int
	Channels    map[string][]float64
	Images      map[string][]float64
	Params      Params
	Histogram   *HistogramState
}

// ForceVolume is the analysis state for one imported measurement.
type ForceVolume struct {
	name     string
	rows     int
	cols     int
	curves   []*ForceCurve
	channels map[ChannelID]*Channel
	images   []*ImageChannel
	omap     *OrientationMap
	registry *PointRegistry
	params   Params
	hist     *Histogram
	avg      *AverageResult
	onChange []func(op string)
}

// Import validates a measurement and builds its ForceVolume: curves are
// split, corrected and turned into derived channels. Malformed curves are
// skipped and reported through the returned count; their grid points stay
// in place as artifact placeholders. A wrong-sized image array aborts the
// import.
func Import(m Measurement) (*ForceVolume, int, error) {
	if m.Rows <= 0 || m.Cols <= 0 {
		return nil, 0, fmt.Errorf("invalid grid %dx%d", m.Rows, m.Cols)
	}
	n := m.Rows * m.Cols
	if len(m.Curves) != n {
		return nil, 0, &ShapeMismatchError{Name: "curves", WantRows: m.Rows, WantCols: m.Cols, Got: len(m.Curves)}
	}
	for name, img := range m.Images {
		if len(img) != n {
			return nil, 0, &ShapeMismatchError{Name: name, WantRows: m.Rows, WantCols: m.Cols, Got: len(img)}
		}
	}

	skipped := 0
	curves := make([]*ForceCurve, n)
	for i, raw := range m.Curves {
		approach, retract, err := SplitCurve(raw.X, raw.Y)
		if err != nil {
			var malformed *MalformedCurveError
			if errors.As(err, &malformed) {
				malformed.Point = i
				monitoring.Logf("[Import] skipping curve: %v", malformed)
			}
			skipped++
			curves[i] = &ForceCurve{Point: i, Correction: failedCorrection()}
			continue
		}
		cx, cy, correction := CorrectCurve(approach.X, approach.Y)
		curves[i] = &ForceCurve{
			Point:      i,
			Approach:   approach,
			Retract:    retract,
			X:          cx,
			Y:          cy,
			Correction: correction,
		}
	}

	images := make([]*ImageChannel, 0, len(m.Images))
	for name, values := range m.Images {
		src := append([]float64(nil), values...)
		images = append(images, &ImageChannel{
			Name:       name,
			SourceData: src,
			Data:       append([]float64(nil), src...),
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })

	v := &ForceVolume{
		name:     m.Name,
		rows:     m.Rows,
		cols:     m.Cols,
		curves:   curves,
		channels: ComputeChannels(curves),
		images:   images,
		omap:     NewOrientationMap(m.Rows, m.Cols),
		registry: NewPointRegistry(n),
		params:   DefaultParams(),
	}
	monitoring.Logf("[ForceVolume] imported %q: grid=%dx%d curves=%d skipped=%d images=%d",
		m.Name, m.Rows, m.Cols, n, skipped, len(images))
	return v, skipped, nil
}

// Name returns the measurement name.
func (v *ForceVolume) Name() string { return v.name }

// Rows returns the canonical row count.
func (v *ForceVolume) Rows() int { return v.rows }

// Cols returns the canonical column count.
func (v *ForceVolume) Cols() int { return v.cols }

// DisplayRows returns the row count in the current display orientation.
func (v *ForceVolume) DisplayRows() int { return v.omap.Rows() }

// DisplayCols returns the column count in the current display orientation.
func (v *ForceVolume) DisplayCols() int { return v.omap.Cols() }

// Len returns the number of grid points.
func (v *ForceVolume) Len() int { return len(v.curves) }

// Registry returns the active point registry.
func (v *ForceVolume) Registry() *PointRegistry { return v.registry }

// OrientationMap returns the current display mapping.
func (v *ForceVolume) OrientationMap() *OrientationMap { return v.omap }

// Params returns the current analysis parameters.
func (v *ForceVolume) Params() Params { return v.params }

// Curves returns the curves in canonical order.
func (v *ForceVolume) Curves() []*ForceCurve { return v.curves }

// Curve returns the curve with the given CanonicalId.
func (v *ForceVolume) Curve(canonical int) (*ForceCurve, error) {
	if canonical < 0 || canonical >= len(v.curves) {
		return nil, &UnknownPointError{Index: canonical, Count: len(v.curves)}
	}
	return v.curves[canonical], nil
}

// Channel returns one derived channel.
func (v *ForceVolume) Channel(id ChannelID) (*Channel, error) {
	c, ok := v.channels[id]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", id)
	}
	return c, nil
}

// Channels returns the derived channels in display order.
func (v *ForceVolume) Channels() []*Channel {
	out := make([]*Channel, 0, len(v.channels))
	for _, id := range AllChannelIDs() {
		if c, ok := v.channels[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Images returns the imported scalar arrays in name order.
func (v *ForceVolume) Images() []*ImageChannel { return v.images }

// Image returns the imported scalar array with the given name.
func (v *ForceVolume) Image(name string) (*ImageChannel, error) {
	for _, img := range v.images {
		if img.Name == name {
			return img, nil
		}
	}
	return nil, fmt.Errorf("unknown image %q", name)
}

// OnChange registers a subscriber that runs synchronously after every
// mutating operation, with the operation name as its argument.
func (v *ForceVolume) OnChange(fn func(op string)) {
	v.onChange = append(v.onChange, fn)
}

func (v *ForceVolume) notify(op string) {
	for _, fn := range v.onChange {
		fn(op)
	}
}

func (v *ForceVolume) invalidate() {
	v.avg = nil
}

// SetParams replaces the analysis parameters, drops the cached average and,
// when the histogram resolution changed, rebuilds the selected histogram.
func (v *ForceVolume) SetParams(p Params) error {
	if p.NumberOfDataPoints <= 0 || p.NumberOfBins <= 0 {
		return fmt.Errorf("analysis parameters must be positive: %+v", p)
	}
	rebuild := v.hist != nil && p.NumberOfBins != v.params.NumberOfBins
	v.params = p
	v.invalidate()
	if rebuild {
		if err := v.SelectHistogramChannel(v.hist.Channel()); err != nil {
			return err
		}
	}
	v.notify("params")
	return nil
}

// TogglePoint flips the point at the given display position and reports
// whether it is active afterwards.
func (v *ForceVolume) TogglePoint(position int) (bool, error) {
	active, err := v.registry.Toggle(position, v.omap)
	if err != nil {
		return false, err
	}
	v.invalidate()
	v.notify("toggle")
	return active, nil
}

// DeactivatePoints marks the points at the given display positions
// inactive.
func (v *ForceVolume) DeactivatePoints(positions []int) error {
	if err := v.registry.Deactivate(positions, v.omap); err != nil {
		return err
	}
	v.invalidate()
	v.notify("deactivate")
	return nil
}

// ActivatePoints marks the points at the given display positions active.
func (v *ForceVolume) ActivatePoints(positions []int) error {
	if err := v.registry.Activate(positions, v.omap); err != nil {
		return err
	}
	v.invalidate()
	v.notify("activate")
	return nil
}

// ResetPoints marks every point active again.
func (v *ForceVolume) ResetPoints() {
	v.registry.ResetAll()
	v.invalidate()
	v.notify("resetPoints")
}

// ApplyOrientation reorders the display mapping and every channel's working
// copy identically. The canonical data and the average are unaffected.
func (v *ForceVolume) ApplyOrientation(o Orientation) {
	rows, cols := v.omap.Rows(), v.omap.Cols()
	v.omap.Apply(o)
	for _, c := range v.channels {
		c.Data = TransformFloats(c.Data, rows, cols, o)
	}
	for _, img := range v.images {
		img.Data = TransformFloats(img.Data, rows, cols, o)
	}
	v.notify("orientation")
}

// ResetView restores the identity orientation and every channel's imported
// values. The active point set is kept.
func (v *ForceVolume) ResetView() {
	v.omap.Reset()
	for _, c := range v.channels {
		c.Reset()
	}
	for _, img := range v.images {
		img.Reset()
	}
	v.notify("resetView")
}

// Heatmap returns the channel's working copy in the current display
// orientation with inactive points masked to NaN, plus the display shape.
func (v *ForceVolume) Heatmap(id ChannelID) ([]float64, int, int, error) {
	c, err := v.Channel(id)
	if err != nil {
		return nil, 0, 0, err
	}
	return v.maskDisplay(c.Data), v.omap.Rows(), v.omap.Cols(), nil
}

// ImageHeatmap is Heatmap for an imported scalar array.
func (v *ForceVolume) ImageHeatmap(name string) ([]float64, int, int, error) {
	img, err := v.Image(name)
	if err != nil {
		return nil, 0, 0, err
	}
	return v.maskDisplay(img.Data), v.omap.Rows(), v.omap.Cols(), nil
}

func (v *ForceVolume) maskDisplay(data []float64) []float64 {
	out := append([]float64(nil), data...)
	for pos, id := range v.omap.ids {
		if !v.registry.IsActive(id) {
			out[pos] = math.NaN()
		}
	}
	return out
}

// Average returns the averaged curve over the active points, computing it
// on first use and after every invalidating change. The volume owns the
// cached result; callers must not mutate it.
func (v *ForceVolume) Average() *AverageResult {
	if v.avg == nil {
		v.avg = ComputeAverage(v.curves, v.registry, AverageParams{
			NumberOfDataPoints: v.params.NumberOfDataPoints,
		})
	}
	return v.avg
}

// Histogram returns the selected histogram, or nil when none is selected.
func (v *ForceVolume) Histogram() *Histogram { return v.hist }

// SelectHistogramChannel builds the histogram for one derived channel over
// its full canonical values and brackets the thresholds to the active
// subset.
func (v *ForceVolume) SelectHistogramChannel(id ChannelID) error {
	c, err := v.Channel(id)
	if err != nil {
		return err
	}
	h, err := NewHistogram(id, c.SourceData, v.params.NumberOfBins)
	if err != nil {
		return err
	}
	h.Restrict(v.registry)
	v.hist = h
	v.notify("histogram")
	return nil
}

// ShiftHistogram performs one threshold move on the selected histogram and
// returns the CanonicalIds whose active state changed.
func (v *ForceVolume) ShiftHistogram(move HistogramMove) ([]int, error) {
	if v.hist == nil {
		return nil, errors.New("no histogram channel selected")
	}
	changed, err := v.hist.Shift(move, v.registry)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		v.invalidate()
	}
	v.notify("histogramShift")
	return changed, nil
}

// Snapshot captures the restorable session state as deep copies.
func (v *ForceVolume) Snapshot() SessionState {
	channels := make(map[string][]float64, len(v.channels))
	for id, c := range v.channels {
		channels[id.String()] = append([]float64(nil), c.Data...)
	}
	images := make(map[string][]float64, len(v.images))
	for _, img := range v.images {
		images[img.Name] = append([]float64(nil), img.Data...)
	}
	state := SessionState{
		Name:        v.name,
		Rows:        v.rows,
		Cols:        v.cols,
		DisplayRows: v.omap.Rows(),
		DisplayCols: v.omap.Cols(),
		MapIDs:      v.omap.IDs(),
		InactiveIDs: v.registry.InactiveIDs(),
		Channels:    channels,
		Images:      images,
		Params:      v.params,
	}
	if v.hist != nil {
		s := v.hist.State()
		state.Histogram = &s
	}
	return state
}

// RestoreSnapshot replays a saved session state onto the volume. The
// snapshot must belong to the same grid shape. Validation runs before
// anything is applied, so a failed restore leaves the volume unchanged.
func (v *ForceVolume) RestoreSnapshot(s SessionState) error {
	if s.Rows != v.rows || s.Cols != v.cols {
		return fmt.Errorf("snapshot grid %dx%d does not match volume %dx%d", s.Rows, s.Cols, v.rows, v.cols)
	}
	n := len(v.curves)
	for name, values := range s.Channels {
		if _, err := ParseChannelID(name); err != nil {
			return fmt.Errorf("snapshot channel: %w", err)
		}
		if len(values) != n {
			return fmt.Errorf("snapshot channel %s has %d values, grid has %d points", name, len(values), n)
		}
	}
	for name, values := range s.Images {
		if _, err := v.Image(name); err != nil {
			return fmt.Errorf("snapshot image: %w", err)
		}
		if len(values) != n {
			return fmt.Errorf("snapshot image %s has %d values, grid has %d points", name, len(values), n)
		}
	}
	if err := v.registry.check(s.InactiveIDs); err != nil {
		return err
	}

	var hist *Histogram
	if s.Histogram != nil {
		id, err := ParseChannelID(s.Histogram.Channel)
		if err != nil {
			return fmt.Errorf("snapshot histogram: %w", err)
		}
		c, err := v.Channel(id)
		if err != nil {
			return err
		}
		hist, err = NewHistogram(id, c.SourceData, s.Histogram.NumberOfBins)
		if err != nil {
			return err
		}
		if err := hist.RestoreState(*s.Histogram); err != nil {
			return err
		}
	}

	if err := v.omap.Restore(s.MapIDs, s.DisplayRows, s.DisplayCols); err != nil {
		return err
	}
	if err := v.registry.Restore(s.InactiveIDs); err != nil {
		return err
	}
	for name, values := range s.Channels {
		id, _ := ParseChannelID(name)
		v.channels[id].Data = append([]float64(nil), values...)
	}
	for name, values := range s.Images {
		img, _ := v.Image(name)
		img.Data = append([]float64(nil), values...)
	}
	v.params = s.Params
	v.hist = hist
	v.invalidate()
	v.notify("restore")
	monitoring.Logf("[ForceVolume] restored session %q: inactive=%d", s.Name, len(s.InactiveIDs))
	return nil
}
