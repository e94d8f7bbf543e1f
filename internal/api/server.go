// Package api exposes the detector's debug surface over HTTP: current
// pipeline status, recent published decisions, and a decision timeline
// chart.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/stopline.report/internal/detect"
	"github.com/banshee-data/stopline.report/internal/store"
)

// ANSI escape codes for request logging.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the detector debug API.
type Server struct {
	detector  *detect.Detector
	store     *store.Store
	sessionID string
}

// NewServer creates an API server over a running detector and its
// store.
func NewServer(detector *detect.Detector, st *store.Store, sessionID string) *Server {
	return &Server{
		detector:  detector,
		store:     st,
		sessionID: sessionID,
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

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/decisions", s.listDecisions)
	mux.HandleFunc("/api/decisions/summary", s.showDecisionSummary)
	mux.HandleFunc("/api/decisions/chart", s.showDecisionChart)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	SessionID    string           `json:"session_id"`
	Detector     detect.Status    `json:"detector"`
	LastDecision *detect.Decision `json:"last_decision,omitempty"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := statusResponse{
		SessionID:    s.sessionID,
		Detector:     s.detector.Status(),
		LastDecision: s.detector.LastDecision(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode status: %v", err)
	}
}

func (s *Server) listDecisions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	decisions, err := s.store.ListDecisions(sessionID, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to list decisions")
		log.Printf("failed to list decisions: %v", err)
		return
	}
	if err := json.NewEncoder(w).Encode(decisions); err != nil {
		log.Printf("failed to encode decisions: %v", err)
	}
}

func (s *Server) showDecisionSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	summary, err := s.store.SummariseDecisions(r.URL.Query().Get("session_id"))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to summarise decisions")
		log.Printf("failed to summarise decisions: %v", err)
		return
	}
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		log.Printf("failed to encode summary: %v", err)
	}
}
