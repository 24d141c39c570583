package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/2Puck/sofa/internal/forcevolume"
	"github.com/2Puck/sofa/internal/units"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridisColors is the visual map gradient for value-colored scatters.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

const chartsIndexHTML = `<!DOCTYPE html>
<html>
<head><title>sofa debug charts</title></head>
<body>
<h1>Debug charts</h1>
<ul>
<li><a href="/debug/charts/heatmap?channel=stiffness">Channel heatmap</a></li>
<li><a href="/debug/charts/histogram">Histogram</a></li>
<li><a href="/debug/charts/average">Average force curve</a></li>
</ul>
</body>
</html>
`

func (s *Server) handleChartsIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(chartsIndexHTML))
}

// handleHeatmapChart renders one channel or image as a colored scatter
// grid (HTML). This is a debugging-only endpoint to eyeball the data
// without a frontend.
// Query params:
//   - channel (default "stiffness")
//   - image (overrides channel when set)
func (s *Server) handleHeatmapChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		name string
		data []float64
		rows int
		cols int
		err  error
	)
	if img := r.URL.Query().Get("image"); img != "" {
		name = img
		data, rows, cols, err = s.vol.ImageHeatmap(img)
		if err != nil {
			s.writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
	} else {
		name = r.URL.Query().Get("channel")
		if name == "" {
			name = forcevolume.ChannelStiffness.String()
		}
		id, perr := forcevolume.ParseChannelID(name)
		if perr != nil {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown channel %q", name))
			return
		}
		data, rows, cols, err = s.vol.Heatmap(id)
		if err != nil {
			s.writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	points := make([]opts.ScatterData, 0, len(data))
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	masked := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			v := data[row*cols+col]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				masked++
				continue
			}
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
			// Display row 0 belongs at the top of the chart.
			points = append(points, opts.ScatterData{Value: []interface{}{col, rows - 1 - row, v}})
		}
	}
	if len(points) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no finite cells to draw")
		return
	}
	if minVal == maxVal {
		maxVal = minVal + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Channel " + name, Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Channel " + name, Subtitle: fmt.Sprintf("%s grid=%dx%d masked=%d", s.vol.Name(), rows, cols, masked)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -0.5, Max: float64(cols) - 0.5, Name: "column", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -0.5, Max: float64(rows) - 0.5, Name: "row", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minVal),
			Max:        float32(maxVal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries(name, points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 16}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleHistogramChart renders the selected histogram as a bar chart with
// the full and the active bin counts side by side.
func (s *Server) handleHistogramChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.vol.Histogram()
	if h == nil {
		s.writeJSONError(w, http.StatusNotFound, "no histogram channel selected")
		return
	}

	edges := h.Edges()
	counts := h.BinCounts(h.Values())
	active := h.BinCounts(h.ActiveValues(s.vol.Registry()))

	x := make([]string, len(counts))
	all := make([]opts.BarData, len(counts))
	act := make([]opts.BarData, len(counts))
	for i := range counts {
		x[i] = fmt.Sprintf("%.3g", (edges[i]+edges[i+1])/2)
		all[i] = opts.BarData{Value: counts[i]}
		act[i] = opts.BarData{Value: active[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Histogram " + h.Channel().String(),
			Subtitle: fmt.Sprintf("bins=%d thresholds=[%d, %d]", h.NumberOfBins(), h.MinBinIndex(), h.MaxBinIndex()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("all", all).
		AddSeries("active", act)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleAverageChart renders the averaged force curve with its stddev
// envelope as a line chart over value axes.
func (s *Server) handleAverageChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	avg := s.vol.Average()
	if avg.Empty() {
		s.writeJSONError(w, http.StatusNotFound, "no average available")
		return
	}

	x := append(append([]float64(nil), avg.LeftX...), avg.RightX...)
	y := append(append([]float64(nil), avg.LeftY...), avg.RightY...)
	dev := append(append([]float64(nil), avg.LeftStdDev...), avg.RightStdDev...)

	xScale, xUnit := units.AxisScale(x, units.Meter)
	yScale, yUnit := units.AxisScale(y, units.Meter)

	mean := make([]opts.LineData, 0, len(x))
	upper := make([]opts.LineData, 0, len(x))
	lower := make([]opts.LineData, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xi := x[i] * xScale
		mean = append(mean, opts.LineData{Value: []interface{}{xi, y[i] * yScale}})
		if !math.IsNaN(dev[i]) {
			upper = append(upper, opts.LineData{Value: []interface{}{xi, (y[i] + dev[i]) * yScale}})
			lower = append(lower, opts.LineData{Value: []interface{}{xi, (y[i] - dev[i]) * yScale}})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Average force curve", Theme: "dark", Width: "1200px", Height: "700px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Average force curve",
			Subtitle: fmt.Sprintf("%s activePoints=%d", s.vol.Name(), s.vol.Registry().ActiveCount()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "piezo (" + xUnit + ")", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "deflection (" + yUnit + ")", NameLocation: "middle", NameGap: 40}),
	)

	line.AddSeries("average", mean, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.AddSeries("mean+sd", upper,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	line.AddSeries("mean-sd", lower,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
