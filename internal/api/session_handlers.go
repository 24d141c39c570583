package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/2Puck/sofa/internal/forcevolume"
	"github.com/2Puck/sofa/internal/sessiondb"
)

// handleSessions handles list and create operations.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "session database not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleListSessions(w, r)
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.ListSessions()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions failed: %v", err))
		return
	}
	if records == nil {
		records = []sessiondb.SessionRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": records,
		"count":    len(records),
	})
}

type createSessionJSON struct {
	Description string `json:"description"`
}

// handleCreateSession snapshots the live volume into the session store.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionJSON
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	s.mu.Lock()
	state := s.vol.Snapshot()
	s.mu.Unlock()

	id, err := s.db.SaveSession(state, req.Description)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("save session failed: %v", err))
		return
	}
	rec, err := s.db.GetSession(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

// handleSessionByID handles get, restore, and delete operations for a
// specific stored session.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "session database not configured")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if restoreID, ok := strings.CutSuffix(id, "/restore"); ok {
		if r.Method != http.MethodPost {
			s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleRestoreSession(w, r, restoreID)
		return
	}
	if id == "" || strings.Contains(id, "/") {
		s.writeJSONError(w, http.StatusBadRequest, "session id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSession(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSession(w, r, id)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.db.GetSession(id)
	if errors.Is(err, sessiondb.ErrSessionNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleRestoreSession replays a stored snapshot onto the live volume.
func (s *Server) handleRestoreSession(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		s.writeJSONError(w, http.StatusBadRequest, "session id is required")
		return
	}

	state, err := s.db.LoadSession(id)
	if errors.Is(err, sessiondb.ErrSessionNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("load session failed: %v", err))
		return
	}

	s.mu.Lock()
	err = s.vol.RestoreSnapshot(state)
	s.mu.Unlock()
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("snapshot does not fit this volume: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "restored",
		"id":     id,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, id string) {
	err := s.db.DeleteSession(id)
	if errors.Is(err, sessiondb.ErrSessionNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("delete session failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "deleted",
		"id":     id,
	})
}

// handleExportJSON downloads the live session state as a JSON document.
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	state := s.vol.Snapshot()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", generateJSONFilename(state.Name)))
	if err := forcevolume.WriteSessionJSON(w, state); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
		return
	}
}

// handleExportText downloads the channel matrices, curves and average as
// a plain-text document.
func (s *Server) handleExportText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", generateTextFilename(s.vol.Name())))
	if err := forcevolume.WriteText(w, s.vol); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
		return
	}
}
