// Route table and request handlers for the HTTP surface.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/perchsec/sentinel/internal/alerting"
	"github.com/perchsec/sentinel/internal/monitoring"
	"github.com/perchsec/sentinel/internal/threat"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Metrics
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/metrics/report", s.handleReport)

	// Ingestion boundary for out-of-process collaborators
	mux.HandleFunc("POST /api/ingest/sample", s.handleIngestSample)
	mux.HandleFunc("POST /api/ingest/cache/{outcome}", s.handleIngestCache)
	mux.HandleFunc("POST /api/ingest/event", s.handleIngestEvent)

	// Alerts
	mux.HandleFunc("GET /api/alerts", s.handleActiveAlerts)
	mux.HandleFunc("GET /api/alerts/history", s.handleAlertHistory)
	mux.HandleFunc("GET /api/alerts/stats", s.handleAlertStats)
	mux.HandleFunc("POST /api/alerts/{id}/ack", s.handleAcknowledge)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", s.handleResolve)
	mux.HandleFunc("GET /api/alerts/stream", s.handleAlertStream)

	// Alert rules
	mux.HandleFunc("GET /api/alerts/rules", s.handleListRules)
	mux.HandleFunc("POST /api/alerts/rules", s.handleAddRule)
	mux.HandleFunc("PATCH /api/alerts/rules/{id}", s.handleUpdateRule)
	mux.HandleFunc("DELETE /api/alerts/rules/{id}", s.handleRemoveRule)

	// Threats
	mux.HandleFunc("GET /api/threats", s.handleThreatStats)
	mux.HandleFunc("GET /api/threats/{source}", s.handleThreatProfile)
	mux.HandleFunc("POST /api/threats/{source}/block", s.handleBlock)
	mux.HandleFunc("POST /api/threats/{source}/unblock", s.handleUnblock)

	// Administration
	mux.HandleFunc("POST /api/admin/reset", s.handleReset)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.collector.CurrentSnapshot())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1h"
	}
	report, err := s.collector.Aggregate(period)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// sampleRequest is the inbound record-a-completed-request shape. Timestamp
// and resource snapshot are attached by the core.
type sampleRequest struct {
	Endpoint   string  `json:"endpoint"`
	Method     string  `json:"method"`
	DurationMs float64 `json:"durationMs"`
	StatusCode int     `json:"statusCode"`
}

func (s *Server) handleIngestSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid sample payload", http.StatusBadRequest)
		return
	}
	if req.Endpoint == "" || req.DurationMs < 0 {
		s.writeError(w, "endpoint required, duration must be non-negative", http.StatusBadRequest)
		return
	}
	s.collector.Observe(req.Endpoint, req.Method, req.DurationMs, req.StatusCode)
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"recorded": true})
}

func (s *Server) handleIngestCache(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("outcome") {
	case "hit":
		s.collector.RecordCacheHit()
	case "miss":
		s.collector.RecordCacheMiss()
	default:
		s.writeError(w, "outcome must be hit or miss", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"recorded": true})
}

// eventRequest is the inbound record-a-security-event shape.
type eventRequest struct {
	Source    string              `json:"source"`
	UserAgent string              `json:"userAgent,omitempty"`
	UserID    string              `json:"userId,omitempty"`
	Type      string              `json:"eventType"`
	Severity  monitoring.Severity `json:"severity"`
	Detail    map[string]any      `json:"detail,omitempty"`
	Action    string              `json:"action,omitempty"`
}

func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid event payload", http.StatusBadRequest)
		return
	}
	if req.Source == "" || req.Type == "" {
		s.writeError(w, "source and eventType are required", http.StatusBadRequest)
		return
	}
	if !req.Severity.Valid() {
		s.writeError(w, "unknown severity", http.StatusBadRequest)
		return
	}
	profile := s.tracker.RecordEvent(threat.ThreatEvent{
		Source:    req.Source,
		UserAgent: req.UserAgent,
		UserID:    req.UserID,
		Type:      req.Type,
		Severity:  req.Severity,
		Detail:    req.Detail,
		Action:    req.Action,
	})
	s.writeJSON(w, http.StatusAccepted, profile)
}

func (s *Server) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.ActiveAlerts())
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.History(100))
}

func (s *Server) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Statistics())
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		By string `json:"by"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.By == "" {
		body.By = "admin"
	}
	if !s.engine.Acknowledge(r.PathValue("id"), body.By) {
		s.writeError(w, "alert not active", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Resolve(r.PathValue("id")) {
		s.writeError(w, "alert not active", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Rules())
}

// ruleRequest carries rule fields over the wire; cooldown is a Go duration
// string ("5m", "90s").
type ruleRequest struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Metric      string                 `json:"metric"`
	Operator    alerting.Operator      `json:"operator"`
	Threshold   *float64               `json:"threshold"`
	Severity    monitoring.Severity    `json:"severity"`
	Cooldown    string                 `json:"cooldown"`
	Enabled     *bool                  `json:"enabled"`
	Channels    *alerting.ChannelFlags `json:"channels"`
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid rule payload", http.StatusBadRequest)
		return
	}
	cooldown, err := parseDurationField(req.Cooldown)
	if err != nil {
		s.writeError(w, "invalid cooldown: "+err.Error(), http.StatusBadRequest)
		return
	}

	rule := alerting.AlertRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Metric:      req.Metric,
		Operator:    req.Operator,
		Severity:    req.Severity,
		Cooldown:    cooldown,
		Enabled:     true,
		Channels:    alerting.ChannelFlags{Log: true},
	}
	if req.Threshold != nil {
		rule.Threshold = *req.Threshold
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Channels != nil {
		rule.Channels = *req.Channels
	}

	if err := s.engine.AddRule(rule); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid rule payload", http.StatusBadRequest)
		return
	}

	update := alerting.RuleUpdate{
		Threshold: req.Threshold,
		Enabled:   req.Enabled,
		Channels:  req.Channels,
	}
	if req.Name != "" {
		update.Name = &req.Name
	}
	if req.Description != "" {
		update.Description = &req.Description
	}
	if req.Metric != "" {
		update.Metric = &req.Metric
	}
	if req.Operator != "" {
		update.Operator = &req.Operator
	}
	if req.Severity != "" {
		update.Severity = &req.Severity
	}
	if req.Cooldown != "" {
		cooldown, err := parseDurationField(req.Cooldown)
		if err != nil {
			s.writeError(w, "invalid cooldown: "+err.Error(), http.StatusBadRequest)
			return
		}
		update.Cooldown = &cooldown
	}

	found, err := s.engine.UpdateRule(r.PathValue("id"), update)
	if !found {
		s.writeError(w, "rule not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	if !s.engine.RemoveRule(r.PathValue("id")) {
		s.writeError(w, "rule not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleThreatStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Statistics())
}

func (s *Server) handleThreatProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.tracker.Profile(r.PathValue("source"))
	if !ok {
		s.writeError(w, "unknown source", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Reason == "" {
		body.Reason = "manual block"
	}
	s.tracker.Block(r.PathValue("source"), body.Reason)
	s.writeJSON(w, http.StatusOK, map[string]bool{"blocked": true})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.Unblock(r.PathValue("source")) {
		s.writeError(w, "unknown source", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"blocked": false})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.collector.Reset()
	s.writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}
