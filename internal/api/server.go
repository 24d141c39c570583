// Package api serves the force-volume analysis state over HTTP: JSON
// endpoints for channels, curves, the average, the histogram and point
// selection, session persistence backed by the session database, and
// go-echarts debug chart pages.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/2Puck/sofa/internal/forcevolume"
	"github.com/2Puck/sofa/internal/monitoring"
	"github.com/2Puck/sofa/internal/sessiondb"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes one force volume and its session store. The volume is
// single-threaded, so every handler runs under the server mutex.
type Server struct {
	mu  sync.Mutex
	vol *forcevolume.ForceVolume
	db  *sessiondb.SessionDB
}

// NewServer wraps a loaded volume and an optional session database.
// With a nil database the session endpoints answer 503.
func NewServer(vol *forcevolume.ForceVolume, db *sessiondb.SessionDB) *Server {
	return &Server{
		vol: vol,
		db:  db,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table for the analysis API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/volume", s.handleVolume)
	mux.HandleFunc("/api/channels", s.handleChannels)
	mux.HandleFunc("/api/channels/", s.handleChannelByID)
	mux.HandleFunc("/api/images/", s.handleImageByName)
	mux.HandleFunc("/api/curves/", s.handleCurveByPosition)
	mux.HandleFunc("/api/average", s.handleAverage)
	mux.HandleFunc("/api/histogram", s.handleHistogram)
	mux.HandleFunc("/api/histogram/channel", s.handleHistogramChannel)
	mux.HandleFunc("/api/histogram/shift", s.handleHistogramShift)
	mux.HandleFunc("/api/points/toggle", s.handleTogglePoint)
	mux.HandleFunc("/api/points/activate", s.handleActivatePoints)
	mux.HandleFunc("/api/points/deactivate", s.handleDeactivatePoints)
	mux.HandleFunc("/api/points/reset", s.handleResetPoints)
	mux.HandleFunc("/api/orientation", s.handleOrientation)
	mux.HandleFunc("/api/orientation/reset", s.handleOrientationReset)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	mux.HandleFunc("/api/export/session.json", s.handleExportJSON)
	mux.HandleFunc("/api/export/data.txt", s.handleExportText)
	mux.HandleFunc("/debug/charts", s.handleChartsIndex)
	mux.HandleFunc("/debug/charts/heatmap", s.handleHeatmapChart)
	mux.HandleFunc("/debug/charts/histogram", s.handleHistogramChart)
	mux.HandleFunc("/debug/charts/average", s.handleAverageChart)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("[API] failed to write response: %v", err)
	}
}

// decodeJSONBody decodes a request body, treating an empty body as an
// empty object. Handlers with required fields validate them afterwards.
func decodeJSONBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVolume summarises the loaded volume.
func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
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
	images := []string{}
	for _, img := range s.vol.Images() {
		images = append(images, img.Name)
	}

	s.writeJSON(w, http.StatusOK, volumeJSON{
		Name:         s.vol.Name(),
		Rows:         s.vol.Rows(),
		Cols:         s.vol.Cols(),
		DisplayRows:  s.vol.DisplayRows(),
		DisplayCols:  s.vol.DisplayCols(),
		Points:       s.vol.Len(),
		ActivePoints: s.vol.Registry().ActiveCount(),
		Channels:     channels,
		Images:       images,
	})
}
