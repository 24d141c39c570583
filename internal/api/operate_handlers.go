package api

import (
	"fmt"
	"net/http"

	"github.com/2Puck/sofa/internal/forcevolume"
)

type togglePointJSON struct {
	Point *int `json:"point"`
}

// handleTogglePoint flips the active state of one display position.
func (s *Server) handleTogglePoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req togglePointJSON
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Point == nil {
		s.writeJSONError(w, http.StatusBadRequest, "point is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.vol.TogglePoint(*req.Point)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"point":        *req.Point,
		"active":       active,
		"activePoints": s.vol.Registry().ActiveCount(),
	})
}

type pointListJSON struct {
	Points []int `json:"points"`
}

func (s *Server) handleDeactivatePoints(w http.ResponseWriter, r *http.Request) {
	s.handlePointList(w, r, s.vol.DeactivatePoints)
}

func (s *Server) handleActivatePoints(w http.ResponseWriter, r *http.Request) {
	s.handlePointList(w, r, s.vol.ActivatePoints)
}

func (s *Server) handlePointList(w http.ResponseWriter, r *http.Request, apply func([]int) error) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req pointListJSON
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(req.Points) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "points is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(req.Points); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"activePoints": s.vol.Registry().ActiveCount(),
	})
}

func (s *Server) handleResetPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.vol.ResetPoints()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"activePoints": s.vol.Registry().ActiveCount(),
	})
}

type orientationJSON struct {
	Op string `json:"op"`
}

// handleOrientation applies one display transform by name, for example
// flipHorizontal or rotateCCW.
func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req orientationJSON
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Op == "" {
		s.writeJSONError(w, http.StatusBadRequest, "op is required")
		return
	}
	o, err := forcevolume.ParseOrientation(req.Op)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.vol.ApplyOrientation(o)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"op":          req.Op,
		"displayRows": s.vol.DisplayRows(),
		"displayCols": s.vol.DisplayCols(),
	})
}

func (s *Server) handleOrientationReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.vol.ResetView()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"displayRows": s.vol.DisplayRows(),
		"displayCols": s.vol.DisplayCols(),
	})
}

type histogramChannelJSON struct {
	Channel string `json:"channel"`
}

// handleHistogramChannel selects the channel the histogram works on and
// returns the fresh histogram view.
func (s *Server) handleHistogramChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req histogramChannelJSON
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Channel == "" {
		s.writeJSONError(w, http.StatusBadRequest, "channel is required")
		return
	}
	id, err := forcevolume.ParseChannelID(req.Channel)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown channel %q", req.Channel))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vol.SelectHistogramChannel(id); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, _ := s.histogramView()
	s.writeJSON(w, http.StatusOK, view)
}

type histogramShiftJSON struct {
	Direction string `json:"direction"`
}

// handleHistogramShift moves one histogram threshold and reports the
// points whose active state changed.
func (s *Server) handleHistogramShift(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req histogramShiftJSON
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Direction == "" {
		s.writeJSONError(w, http.StatusBadRequest, "direction is required")
		return
	}
	move, err := forcevolume.ParseHistogramMove(req.Direction)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.vol.ShiftHistogram(move)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if changed == nil {
		changed = []int{}
	}
	view, _ := s.histogramView()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"changed":      changed,
		"histogram":    view,
		"activePoints": s.vol.Registry().ActiveCount(),
	})
}
