package forcevolume

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/2Puck/sofa/internal/fsutil"
	"github.com/2Puck/sofa/internal/monitoring"
	"github.com/2Puck/sofa/internal/security"
)

// JSONFloats is a float slice that survives JSON: NaN and infinities are
// written as null and read back as NaN.
type JSONFloats []float64

func (f JSONFloats) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(f)*8+2)
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
		} else {
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
	}
	return append(buf, ']'), nil
}

func (f *JSONFloats) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(JSONFloats, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*f = out
	return nil
}

type sessionParamsJSON struct {
	NumberOfDataPoints int `json:"numberOfDataPoints"`
	NumberOfBins       int `json:"numberOfBins"`
}

type sessionHistogramJSON struct {
	Channel      string `json:"currentChannel"`
	NumberOfBins int    `json:"numberOfBins"`
	MinBinIndex  int    `json:"minBinIndex"`
	MaxBinIndex  int    `json:"maxBinIndex"`
}

type sessionJSON struct {
	Name        string                `json:"name"`
	Rows        int                   `json:"rows"`
	Cols        int                   `json:"cols"`
	DisplayRows int                   `json:"displayRows"`
	DisplayCols int                   `json:"displayCols"`
	MapIDs      []int                 `json:"mappedIndices"`
	InactiveIDs []int                 `json:"inactiveDataPoints"`
	Channels    map[string]JSONFloats `json:"channelData"`
	Images      map[string]JSONFloats `json:"imageData"`
	Params      sessionParamsJSON     `json:"parameters"`
	Histogram   *sessionHistogramJSON `json:"histogramParameters,omitempty"`
}

// WriteSessionJSON writes a session state as JSON.
func WriteSessionJSON(w io.Writer, s SessionState) error {
	out := sessionJSON{
		Name:        s.Name,
		Rows:        s.Rows,
		Cols:        s.Cols,
		DisplayRows: s.DisplayRows,
		DisplayCols: s.DisplayCols,
		MapIDs:      s.MapIDs,
		InactiveIDs: s.InactiveIDs,
		Channels:    make(map[string]JSONFloats, len(s.Channels)),
		Images:      make(map[string]JSONFloats, len(s.Images)),
		Params: sessionParamsJSON{
			NumberOfDataPoints: s.Params.NumberOfDataPoints,
			NumberOfBins:       s.Params.NumberOfBins,
		},
	}
	for name, values := range s.Channels {
		out.Channels[name] = JSONFloats(values)
	}
	for name, values := range s.Images {
		out.Images[name] = JSONFloats(values)
	}
	if s.Histogram != nil {
		out.Histogram = &sessionHistogramJSON{
			Channel:      s.Histogram.Channel,
			NumberOfBins: s.Histogram.NumberOfBins,
			MinBinIndex:  s.Histogram.MinBinIndex,
			MaxBinIndex:  s.Histogram.MaxBinIndex,
		}
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return nil
}

// ReadSessionJSON reads a session state written by WriteSessionJSON.
func ReadSessionJSON(r io.Reader) (SessionState, error) {
	var in sessionJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return SessionState{}, fmt.Errorf("decode session: %w", err)
	}

	s := SessionState{
		Name:        in.Name,
		Rows:        in.Rows,
		Cols:        in.Cols,
		DisplayRows: in.DisplayRows,
		DisplayCols: in.DisplayCols,
		MapIDs:      in.MapIDs,
		InactiveIDs: in.InactiveIDs,
		Channels:    make(map[string][]float64, len(in.Channels)),
		Images:      make(map[string][]float64, len(in.Images)),
		Params: Params{
			NumberOfDataPoints: in.Params.NumberOfDataPoints,
			NumberOfBins:       in.Params.NumberOfBins,
		},
	}
	for name, values := range in.Channels {
		s.Channels[name] = []float64(values)
	}
	for name, values := range in.Images {
		s.Images[name] = []float64(values)
	}
	if in.Histogram != nil {
		s.Histogram = &HistogramState{
			Channel:      in.Histogram.Channel,
			NumberOfBins: in.Histogram.NumberOfBins,
			MinBinIndex:  in.Histogram.MinBinIndex,
			MaxBinIndex:  in.Histogram.MaxBinIndex,
		}
	}
	return s, nil
}

type measurementCurveJSON struct {
	X JSONFloats `json:"x"`
	Y JSONFloats `json:"y"`
}

type measurementJSON struct {
	Name   string                 `json:"name"`
	Rows   int                    `json:"rows"`
	Cols   int                    `json:"cols"`
	Curves []measurementCurveJSON `json:"curves"`
	Images map[string]JSONFloats  `json:"images,omitempty"`
}

// WriteMeasurementJSON writes a raw measurement as JSON. Together with
// ReadMeasurementJSON it moves uncorrected grids between the generator
// and the analysis server.
func WriteMeasurementJSON(w io.Writer, m Measurement) error {
	out := measurementJSON{
		Name:   m.Name,
		Rows:   m.Rows,
		Cols:   m.Cols,
		Curves: make([]measurementCurveJSON, len(m.Curves)),
	}
	for i, c := range m.Curves {
		out.Curves[i] = measurementCurveJSON{X: JSONFloats(c.X), Y: JSONFloats(c.Y)}
	}
	if len(m.Images) > 0 {
		out.Images = make(map[string]JSONFloats, len(m.Images))
		for name, values := range m.Images {
			out.Images[name] = JSONFloats(values)
		}
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}
	return nil
}

// ReadMeasurementJSON reads a measurement written by WriteMeasurementJSON.
// Shape checks are left to Import.
func ReadMeasurementJSON(r io.Reader) (Measurement, error) {
	var in measurementJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return Measurement{}, fmt.Errorf("decode measurement: %w", err)
	}

	m := Measurement{
		Name:   in.Name,
		Rows:   in.Rows,
		Cols:   in.Cols,
		Curves: make([]RawCurve, len(in.Curves)),
	}
	for i, c := range in.Curves {
		m.Curves[i] = RawCurve{X: []float64(c.X), Y: []float64(c.Y)}
	}
	if len(in.Images) > 0 {
		m.Images = make(map[string][]float64, len(in.Images))
		for name, values := range in.Images {
			m.Images[name] = []float64(values)
		}
	}
	return m, nil
}

// WriteText writes a plain-text report of the volume: general data, the
// channel and image matrices, the corrected curves and the averaged
// arrays, one matrix row per line.
func WriteText(w io.Writer, v *ForceVolume) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "General data:\n")
	fmt.Fprintf(bw, "name: %s\n", v.Name())
	fmt.Fprintf(bw, "grid: %dx%d\n", v.Rows(), v.Cols())
	fmt.Fprintf(bw, "activePoints: %d\n", v.Registry().ActiveCount())
	fmt.Fprintf(bw, "\n")

	fmt.Fprintf(bw, "Channel data:\n")
	for _, c := range v.Channels() {
		fmt.Fprintf(bw, "%s:\n", c.ID)
		writeMatrix(bw, c.SourceData, v.Cols())
		fmt.Fprintf(bw, "\n")
	}
	for _, img := range v.Images() {
		fmt.Fprintf(bw, "%s:\n", img.Name)
		writeMatrix(bw, img.SourceData, v.Cols())
		fmt.Fprintf(bw, "\n")
	}

	fmt.Fprintf(bw, "Curve data:\n")
	for _, c := range v.Curves() {
		fmt.Fprintf(bw, "point %d:\n", c.Point)
		writeRow(bw, c.X)
		writeRow(bw, c.Y)
	}
	fmt.Fprintf(bw, "\n")

	avg := v.Average()
	fmt.Fprintf(bw, "Average data:\n")
	for _, row := range []struct {
		name   string
		values []float64
	}{
		{"leftX", avg.LeftX},
		{"leftY", avg.LeftY},
		{"leftStdDev", avg.LeftStdDev},
		{"rightX", avg.RightX},
		{"rightY", avg.RightY},
		{"rightStdDev", avg.RightStdDev},
	} {
		fmt.Fprintf(bw, "%s:\n", row.name)
		writeRow(bw, row.values)
	}

	return bw.Flush()
}

func writeRow(w io.Writer, values []float64) {
	for i, v := range values {
		if i > 0 {
			io.WriteString(w, " ")
		}
		fmt.Fprintf(w, "%.8e", v)
	}
	io.WriteString(w, "\n")
}

func writeMatrix(w io.Writer, values []float64, cols int) {
	for start := 0; start < len(values); start += cols {
		end := start + cols
		if end > len(values) {
			end = len(values)
		}
		writeRow(w, values[start:end])
	}
}

// ExportDir writes the text and JSON exports of the volume into dir.
func ExportDir(fsys fsutil.FileSystem, dir string, v *ForceVolume) error {
	txt, err := fsys.Create(filepath.Join(dir, "data.txt"))
	if err != nil {
		return err
	}
	if err := WriteText(txt, v); err != nil {
		txt.Close()
		return err
	}
	if err := txt.Close(); err != nil {
		return err
	}

	session, err := fsys.Create(filepath.Join(dir, "data.json"))
	if err != nil {
		return err
	}
	if err := WriteSessionJSON(session, v.Snapshot()); err != nil {
		session.Close()
		return err
	}
	if err := session.Close(); err != nil {
		return err
	}

	monitoring.Logf("[Export] wrote %q and %q", filepath.Join(dir, "data.txt"), filepath.Join(dir, "data.json"))
	return nil
}

// CreateSessionFolder creates the next numbered session folder under
// base/SofaData/name and returns its path. A counter file next to the
// session folders carries the numbering across runs. The measurement
// name is reduced to a single safe path component before it is joined.
func CreateSessionFolder(fsys fsutil.FileSystem, base, name string) (string, error) {
	parent := filepath.Join(base, "SofaData", security.SanitizeFilename(name))
	if err := fsys.MkdirAll(parent, 0755); err != nil {
		return "", err
	}

	counter := filepath.Join(parent, ".sessionNumber")
	number := 1
	if data, err := fsys.ReadFile(counter); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			number = n + 1
		}
	}
	if err := fsys.WriteFile(counter, []byte(strconv.Itoa(number)), 0644); err != nil {
		return "", err
	}

	dir := filepath.Join(parent, fmt.Sprintf("Session%d", number))
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
