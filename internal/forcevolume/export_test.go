package forcevolume

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2Puck/sofa/internal/fsutil"
)

// rowsAfter returns the n lines following the first occurrence of header.
func rowsAfter(t *testing.T, lines []string, header string, n int) []string {
	t.Helper()
	for i, line := range lines {
		if line == header {
			require.Less(t, i+n, len(lines), "truncated after %q", header)
			return lines[i+1 : i+1+n]
		}
	}
	t.Fatalf("header %q not found", header)
	return nil
}

func parseRow(t *testing.T, line string) []float64 {
	t.Helper()
	fields := strings.Fields(line)
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		require.NoError(t, err, "field %q", f)
		values[i] = v
	}
	return values
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	v := mustImport(t, testMeasurement(2, 3))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, v))
	out := buf.String()

	assert.Contains(t, out, "General data:\nname: scan-2026-08\ngrid: 2x3\nactivePoints: 6\n")
	assert.Contains(t, out, "Channel data:\n")
	assert.Contains(t, out, "Curve data:\n")
	assert.Contains(t, out, "Average data:\n")

	lines := strings.Split(out, "\n")

	// Channel matrices come out one display row per line. Point 5 scales
	// the shared deflection shape by 1.25, and the correction preserves
	// scale, so the stiffness ratio is exact.
	stiff := rowsAfter(t, lines, "stiffness:", 2)
	row0 := parseRow(t, stiff[0])
	row1 := parseRow(t, stiff[1])
	require.Len(t, row0, 3)
	require.Len(t, row1, 3)
	assert.Greater(t, row0[0], 0.0)
	assert.InEpsilon(t, 1.25, row1[2]/row0[0], 1e-6)

	height := rowsAfter(t, lines, "height:", 2)
	assert.Equal(t, []float64{0, 1, 2}, parseRow(t, height[0]))
	assert.Equal(t, []float64{3, 4, 5}, parseRow(t, height[1]))

	// Each curve contributes an x row and a y row of equal length.
	curve := rowsAfter(t, lines, "point 0:", 2)
	x := parseRow(t, curve[0])
	y := parseRow(t, curve[1])
	require.NotEmpty(t, x)
	assert.Len(t, y, len(x))

	avg := rowsAfter(t, lines, "leftX:", 1)
	assert.Len(t, parseRow(t, avg[0]), len(v.Average().LeftX))
}

func TestSessionJSONRoundTrip(t *testing.T) {
	t.Parallel()

	m := testMeasurement(2, 3)
	m.Curves[2].Y = m.Curves[2].Y[:len(m.Curves[2].Y)-1]
	v, skipped, err := Import(m)
	require.NoError(t, err)
	require.Equal(t, 1, skipped)

	require.NoError(t, v.SetParams(Params{NumberOfDataPoints: 30, NumberOfBins: 4}))
	require.NoError(t, v.SelectHistogramChannel(ChannelStiffness))
	v.ApplyOrientation(FlipVertical)
	_, err = v.TogglePoint(1)
	require.NoError(t, err)

	snap := v.Snapshot()

	var buf bytes.Buffer
	require.NoError(t, WriteSessionJSON(&buf, snap))
	raw := buf.String()
	assert.Contains(t, raw, `"inactiveDataPoints":[1]`)
	assert.Contains(t, raw, `"mappedIndices":[2,1,0,5,4,3]`)
	assert.Contains(t, raw, `"currentChannel":"stiffness"`)
	assert.Contains(t, raw, `"channelData"`)
	assert.Contains(t, raw, "null", "NaN entries must serialize as null")

	got, err := ReadSessionJSON(&buf)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(snap, got, cmpopts.EquateNaNs(), cmpopts.EquateEmpty()))

	// A freshly imported volume of the same shape accepts the state.
	v2 := mustImport(t, testMeasurement(2, 3))
	require.NoError(t, v2.RestoreSnapshot(got))
	assert.Equal(t, []int{2, 1, 0, 5, 4, 3}, v2.OrientationMap().IDs())
	assert.False(t, v2.Registry().IsActive(1))
	assert.Equal(t, Params{NumberOfDataPoints: 30, NumberOfBins: 4}, v2.Params())
	require.NotNil(t, v2.Histogram())
	assert.Equal(t, ChannelStiffness, v2.Histogram().Channel())
}

func TestSessionJSON_NoHistogram(t *testing.T) {
	t.Parallel()

	v := mustImport(t, testMeasurement(2, 2))

	var buf bytes.Buffer
	require.NoError(t, WriteSessionJSON(&buf, v.Snapshot()))
	assert.NotContains(t, buf.String(), "histogramParameters")

	got, err := ReadSessionJSON(&buf)
	require.NoError(t, err)
	assert.Nil(t, got.Histogram)
}

func TestReadSessionJSON_BadInput(t *testing.T) {
	t.Parallel()

	_, err := ReadSessionJSON(strings.NewReader("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode session")
}

func TestExportDir(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	v := mustImport(t, testMeasurement(2, 3))

	require.NoError(t, ExportDir(fsys, "out", v))

	txt, err := fsys.ReadFile("out/data.txt")
	require.NoError(t, err)
	assert.Contains(t, string(txt), "General data:")
	assert.Contains(t, string(txt), "Average data:")

	raw, err := fsys.ReadFile("out/data.json")
	require.NoError(t, err)
	state, err := ReadSessionJSON(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "scan-2026-08", state.Name)
	assert.Equal(t, 2, state.Rows)
	assert.Equal(t, 3, state.Cols)
}

func TestCreateSessionFolder(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()

	first, err := CreateSessionFolder(fsys, "work", "demo")
	require.NoError(t, err)
	assert.Equal(t, "work/SofaData/demo/Session1", first)
	assert.True(t, fsys.Exists(first))

	second, err := CreateSessionFolder(fsys, "work", "demo")
	require.NoError(t, err)
	assert.Equal(t, "work/SofaData/demo/Session2", second)

	counter, err := fsys.ReadFile("work/SofaData/demo/.sessionNumber")
	require.NoError(t, err)
	assert.Equal(t, "2", string(counter))

	// A different measurement name numbers independently.
	other, err := CreateSessionFolder(fsys, "work", "other")
	require.NoError(t, err)
	assert.Equal(t, "work/SofaData/other/Session1", other)
}

func TestCreateSessionFolderSanitizesName(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()

	dir, err := CreateSessionFolder(fsys, "work", "glass slide/04")
	require.NoError(t, err)
	assert.Equal(t, "work/SofaData/glass_slide_04/Session1", dir)

	// A name that is pure traversal collapses to the fallback component.
	dir, err = CreateSessionFolder(fsys, "work", "..")
	require.NoError(t, err)
	assert.Equal(t, "work/SofaData/unknown/Session1", dir)
}

func TestMeasurementJSONRoundTrip(t *testing.T) {
	t.Parallel()

	m := testMeasurement(2, 3)
	m.Curves[1].Y[0] = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, WriteMeasurementJSON(&buf, m))

	got, err := ReadMeasurementJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.Rows, got.Rows)
	assert.Equal(t, m.Cols, got.Cols)
	require.Len(t, got.Curves, len(m.Curves))
	assert.Equal(t, m.Curves[0].X, got.Curves[0].X)
	assert.True(t, math.IsNaN(got.Curves[1].Y[0]))
	assert.Equal(t, m.Images, got.Images)
}

func TestReadMeasurementJSON_BadInput(t *testing.T) {
	t.Parallel()

	_, err := ReadMeasurementJSON(strings.NewReader("[1, 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode measurement")
}
