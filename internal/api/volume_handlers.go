package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/2Puck/sofa/internal/forcevolume"
)

type volumeJSON struct {
	Name         string   `json:"name"`
	Rows         int      `json:"rows"`
	Cols         int      `json:"cols"`
	DisplayRows  int      `json:"displayRows"`
	DisplayCols  int      `json:"displayCols"`
	Points       int      `json:"points"`
	ActivePoints int      `json:"activePoints"`
	Channels     []string `json:"channels"`
	Images       []string `json:"images"`
}

type heatmapJSON struct {
	Name string                 `json:"name"`
	Rows int                    `json:"rows"`
	Cols int                    `json:"cols"`
	Data forcevolume.JSONFloats `json:"data"`
}

type segmentJSON struct {
	X forcevolume.JSONFloats `json:"x"`
	Y forcevolume.JSONFloats `json:"y"`
}

type correctionJSON struct {
	Ok             bool     `json:"ok"`
	RawStiffness   *float64 `json:"rawStiffness,omitempty"`
	RawOffset      *float64 `json:"rawOffset,omitempty"`
	EndOfZeroline  int      `json:"endOfZeroline"`
	ZeroCrossing   int      `json:"zeroCrossing"`
	PointOfContact *float64 `json:"pointOfContact,omitempty"`
}

type curveJSON struct {
	Point      int                    `json:"point"`
	Position   int                    `json:"position"`
	X          forcevolume.JSONFloats `json:"x"`
	Y          forcevolume.JSONFloats `json:"y"`
	Approach   segmentJSON            `json:"approach"`
	Retract    segmentJSON            `json:"retract"`
	Correction correctionJSON         `json:"correction"`
}

type averageJSON struct {
	Empty       bool                   `json:"empty"`
	LeftX       forcevolume.JSONFloats `json:"leftX"`
	LeftY       forcevolume.JSONFloats `json:"leftY"`
	LeftStdDev  forcevolume.JSONFloats `json:"leftStdDev"`
	RightX      forcevolume.JSONFloats `json:"rightX"`
	RightY      forcevolume.JSONFloats `json:"rightY"`
	RightStdDev forcevolume.JSONFloats `json:"rightStdDev"`
}

type histogramJSON struct {
	Channel      string                 `json:"channel"`
	NumberOfBins int                    `json:"numberOfBins"`
	MinBinIndex  int                    `json:"minBinIndex"`
	MaxBinIndex  int                    `json:"maxBinIndex"`
	Edges        forcevolume.JSONFloats `json:"edges"`
	Counts       []int                  `json:"counts"`
	ActiveCounts []int                  `json:"activeCounts"`
}

type paramsJSON struct {
	NumberOfDataPoints int `json:"numberOfDataPoints"`
	NumberOfBins       int `json:"numberOfBins"`
}

// finitePtr hides non-finite scalars from JSON; the decoder on the other
// side reads the missing field as unknown.
func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	channels := []string{}
	for _, c := range s.vol.Channels() {
		channels = append(channels, c.ID.String())
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"channels": channels,
		"count":    len(channels),
	})
}

// handleChannelByID returns the display-oriented heatmap of one derived
// channel. Inactive points are masked to null.
func (s *Server) handleChannelByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/channels/")
	if name == "" {
		s.writeJSONError(w, http.StatusBadRequest, "channel name is required")
		return
	}
	id, err := forcevolume.ParseChannelID(name)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown channel %q", name))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, rows, cols, err := s.vol.Heatmap(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, heatmapJSON{
		Name: name,
		Rows: rows,
		Cols: cols,
		Data: data,
	})
}

// handleImageByName returns the display-oriented heatmap of one imported
// scalar array.
func (s *Server) handleImageByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/images/")
	if name == "" {
		s.writeJSONError(w, http.StatusBadRequest, "image name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, rows, cols, err := s.vol.ImageHeatmap(name)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, heatmapJSON{
		Name: name,
		Rows: rows,
		Cols: cols,
		Data: data,
	})
}

// handleCurveByPosition returns one force curve addressed by its display
// position; the response names the canonical point it resolved to.
func (s *Server) handleCurveByPosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/curves/")
	position, err := strconv.Atoi(raw)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid point position %q", raw))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	canonical, err := s.vol.OrientationMap().ToCanonical(position)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	curve, err := s.vol.Curve(canonical)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, curveJSON{
		Point:    curve.Point,
		Position: position,
		X:        curve.X,
		Y:        curve.Y,
		Approach: segmentJSON{X: curve.Approach.X, Y: curve.Approach.Y},
		Retract:  segmentJSON{X: curve.Retract.X, Y: curve.Retract.Y},
		Correction: correctionJSON{
			Ok:             curve.Correction.Ok,
			RawStiffness:   finitePtr(curve.Correction.RawStiffness),
			RawOffset:      finitePtr(curve.Correction.RawOffset),
			EndOfZeroline:  curve.Correction.EndOfZeroline,
			ZeroCrossing:   curve.Correction.ZeroCrossing,
			PointOfContact: finitePtr(curve.Correction.PointOfContact),
		},
	})
}

func (s *Server) handleAverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	avg := s.vol.Average()
	s.writeJSON(w, http.StatusOK, averageJSON{
		Empty:       avg.Empty(),
		LeftX:       avg.LeftX,
		LeftY:       avg.LeftY,
		LeftStdDev:  avg.LeftStdDev,
		RightX:      avg.RightX,
		RightY:      avg.RightY,
		RightStdDev: avg.RightStdDev,
	})
}

func (s *Server) histogramView() (histogramJSON, bool) {
	h := s.vol.Histogram()
	if h == nil {
		return histogramJSON{}, false
	}
	return histogramJSON{
		Channel:      h.Channel().String(),
		NumberOfBins: h.NumberOfBins(),
		MinBinIndex:  h.MinBinIndex(),
		MaxBinIndex:  h.MaxBinIndex(),
		Edges:        h.Edges(),
		Counts:       h.BinCounts(h.Values()),
		ActiveCounts: h.BinCounts(h.ActiveValues(s.vol.Registry())),
	}, true
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.histogramView()
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no histogram channel selected")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type paramsUpdateJSON struct {
	NumberOfDataPoints *int `json:"numberOfDataPoints"`
	NumberOfBins       *int `json:"numberOfBins"`
}

// handleParams reads or updates the analysis parameters. Updates may be
// partial; absent fields keep their current value.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.vol.Params()
		s.writeJSON(w, http.StatusOK, paramsJSON{
			NumberOfDataPoints: p.NumberOfDataPoints,
			NumberOfBins:       p.NumberOfBins,
		})
	case http.MethodPut:
		var update paramsUpdateJSON
		if err := decodeJSONBody(r, &update); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		p := s.vol.Params()
		if update.NumberOfDataPoints != nil {
			p.NumberOfDataPoints = *update.NumberOfDataPoints
		}
		if update.NumberOfBins != nil {
			p.NumberOfBins = *update.NumberOfBins
		}
		if err := s.vol.SetParams(p); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, paramsJSON{
			NumberOfDataPoints: p.NumberOfDataPoints,
			NumberOfBins:       p.NumberOfBins,
		})
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
