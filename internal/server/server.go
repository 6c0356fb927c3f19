// Package server exposes the observability core over HTTP.
//
// DESIGN: The core has no opinion on transport; this package is the
// reference surface. A stdlib mux with a small middleware chain:
//  1. panicRecovery: catch panics, return 500, log stack trace
//  2. blockGate:     reject requests from blocked sources before any work
//  3. instrument:    request ID, logging, and a Sample per completed request
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perchsec/sentinel/internal/alerting"
	"github.com/perchsec/sentinel/internal/config"
	"github.com/perchsec/sentinel/internal/monitoring"
	"github.com/perchsec/sentinel/internal/notify"
	"github.com/perchsec/sentinel/internal/threat"
)

// Server wires the core components to an HTTP listener.
type Server struct {
	cfg       config.ServerConfig
	collector *monitoring.Collector
	monitor   *monitoring.Monitor
	engine    *alerting.Engine
	tracker   *threat.Tracker
	hub       *notify.StreamHub

	httpServer *http.Server
}

// New creates a server over the given components. The hub may be nil when
// the live alert stream is disabled.
func New(cfg config.ServerConfig, collector *monitoring.Collector, monitor *monitoring.Monitor, engine *alerting.Engine, tracker *threat.Tracker, hub *notify.StreamHub) *Server {
	s := &Server{
		cfg:       cfg,
		collector: collector,
		monitor:   monitor,
		engine:    engine,
		tracker:   tracker,
		hub:       hub,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.panicRecovery(s.blockGate(s.instrument(s.routes()))),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts serving. Blocks until the listener fails or the
// server is shut down.
func (s *Server) ListenAndServe() error {
	log.Info().Int("port", s.cfg.Port).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeJSON serializes v with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseDurationField parses an optional duration string, "" yielding zero.
func parseDurationField(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
