// Package http exposes the session journal over a read-only JSON API,
// plus the Prometheus metrics endpoint.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loopwise/loopwise/internal/metrics"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

// defaultLogLimit bounds GET /logs when no limit parameter is given.
const defaultLogLimit = 20

// Server serves recorder contents. It never mutates sessions; approval and
// removal stay on the CLI.
type Server struct {
	recorder ports.Recorder
	logger   *slog.Logger
}

// NewHandler builds the HTTP handler for the recorder-backed API.
func NewHandler(recorder ports.Recorder, logger *slog.Logger) http.Handler {
	s := &Server{recorder: recorder, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/sessions", s.listSessions)
	r.Get("/sessions/{id}", s.getSession)
	r.Get("/sessions/{id}/logs", s.getSessionLogs)
	r.Get("/logs", s.recentLogs)
	r.Get("/improvements", s.pendingImprovements)
	r.Handle("/metrics", metrics.Handler())
	return r
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.recorder.ListSessions(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, map[string]any{"sessions": ids})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.recorder.GetSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, session)
}

func (s *Server) getSessionLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.recorder.SessionLogs(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, map[string]any{"logs": logs})
}

func (s *Server) recentLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := s.recorder.RecentLogs(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, map[string]any{"logs": logs})
}

func (s *Server) pendingImprovements(w http.ResponseWriter, r *http.Request) {
	pending, err := s.recorder.PendingImprovements(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, map[string]any{"improvements": pending})
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
