// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/internal/scheduler"
)

// applyTimeout bounds how long a handler waits for the tick loop to apply
// a request.
const applyTimeout = 2 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Current returns the last committed frame.
	Current() (scheduler.Frame, bool)

	// Submit queues a request for the next tick and waits for the outcome.
	Submit(ctx context.Context, r scheduler.Request) error

	// Profile returns the active referee profile.
	Profile() profile.Profile
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	snapshotHandler *SnapshotHandler
	refereeHandler  *RefereeHandler
	profileHandler  *ProfileHandler
	matchHandler    *MatchHandler
	stream          http.Handler
}

// ServerOption configures optional routes.
type ServerOption func(*Server)

// WithJournal serves recorded matches from reader under /matches.
func WithJournal(reader JournalReader) ServerOption {
	return func(s *Server) {
		if reader != nil {
			s.matchHandler = NewMatchHandler(reader)
		}
	}
}

// NewServer creates a new API server with all handlers. stream may be nil
// when the websocket feed is disabled.
func NewServer(deps Dependencies, statsProvider StatsProvider, stream http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		snapshotHandler: NewSnapshotHandler(deps),
		refereeHandler:  NewRefereeHandler(deps),
		profileHandler:  NewProfileHandler(deps),
		stream:          stream,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/snapshot", MetricsMiddleware(s.snapshotHandler.HandleSnapshot, "snapshot"))
	mux.HandleFunc("/referee/command", MetricsMiddleware(s.refereeHandler.HandleCommand, "referee_command"))
	mux.HandleFunc("/referee/stage", MetricsMiddleware(s.refereeHandler.HandleStage, "referee_stage"))
	mux.HandleFunc("/profile", MetricsMiddleware(s.profileHandler.HandleProfile, "profile"))
	if s.matchHandler != nil {
		mux.HandleFunc("/matches", MetricsMiddleware(s.matchHandler.HandleMatches, "matches"))
		mux.HandleFunc("/matches/{id}", MetricsMiddleware(s.matchHandler.HandleMatch, "match"))
		mux.HandleFunc("/matches/{id}/events", MetricsMiddleware(s.matchHandler.HandleEvents, "match_events"))
		mux.HandleFunc("/matches/{id}/recordings", MetricsMiddleware(s.matchHandler.HandleRecordings, "match_recordings"))
	}
	if s.stream != nil {
		// Upgrades need the raw writer, so the stream skips the middleware.
		mux.Handle("/ws", s.stream)
	}
}

type appliedResponse struct {
	Status string `json:"status"`
	Value  string `json:"value"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a small JSON body, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

const maxBodyBytes = 1 << 16
