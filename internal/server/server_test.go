package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchsec/sentinel/internal/alerting"
	"github.com/perchsec/sentinel/internal/config"
	"github.com/perchsec/sentinel/internal/monitoring"
	"github.com/perchsec/sentinel/internal/server"
	"github.com/perchsec/sentinel/internal/threat"
)

// newTestServer wires a server over in-memory components with a manual clock.
func newTestServer(t *testing.T) (*server.Server, *monitoring.Collector, *alerting.Engine, *threat.Tracker, *monitoring.ManualClock) {
	t.Helper()

	clock := monitoring.NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	collector := monitoring.NewCollector(100, clock)
	engine := alerting.NewEngine(clock)
	tracker := threat.NewTracker(clock)

	cfg := config.ServerConfig{Port: 8090, ReadTimeout: 15 * time.Second, WriteTimeout: 30 * time.Second}
	srv := server.New(cfg, collector, nil, engine, tracker, nil)
	return srv, collector, engine, tracker, clock
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.NotEmpty(t, rec.Header().Get(server.HeaderRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, collector, _, _, _ := newTestServer(t)
	collector.Observe("/api/users", "GET", 120, 200)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap monitoring.SystemMetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.RequestCount)
}

func TestReportEndpoint_UnknownPeriod(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/metrics/report?period=3d", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestSample(t *testing.T) {
	srv, collector, _, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ingest/sample", map[string]any{
		"endpoint":   "/api/orders",
		"method":     "POST",
		"durationMs": 42.5,
		"statusCode": 201,
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The ingested sample plus the instrumented ingest request itself.
	assert.Equal(t, int64(2), collector.CurrentSnapshot().RequestCount)
}

func TestIngestSample_Invalid(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ingest/sample", map[string]any{
		"method": "GET",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestCache(t *testing.T) {
	srv, collector, _, _, _ := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusAccepted, doJSON(t, h, http.MethodPost, "/api/ingest/cache/hit", nil).Code)
	assert.Equal(t, http.StatusAccepted, doJSON(t, h, http.MethodPost, "/api/ingest/cache/miss", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, h, http.MethodPost, "/api/ingest/cache/bogus", nil).Code)

	assert.InDelta(t, 50.0, collector.CurrentSnapshot().CacheHitRate, 0.01)
}

func TestIngestEvent(t *testing.T) {
	srv, _, _, tracker, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ingest/event", map[string]any{
		"source":    "10.0.0.9",
		"eventType": "auth_failure",
		"severity":  "high",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	profile, ok := tracker.Profile("10.0.0.9")
	require.True(t, ok)
	assert.Equal(t, 1, profile.EventCount)
}

func TestIngestEvent_Invalid(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/ingest/event", map[string]any{
		"eventType": "auth_failure", "severity": "high",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/ingest/event", map[string]any{
		"source": "10.0.0.9", "eventType": "auth_failure", "severity": "extreme",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuleLifecycle(t *testing.T) {
	srv, _, engine, _, _ := newTestServer(t)
	h := srv.Handler()

	threshold := 95.0
	rec := doJSON(t, h, http.MethodPost, "/api/alerts/rules", map[string]any{
		"id":        "cpu-burn",
		"name":      "CPU Burn",
		"metric":    "cpu.userMs",
		"operator":  ">",
		"threshold": threshold,
		"severity":  "high",
		"cooldown":  "5m",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rules := engine.Rules()
	require.Len(t, rules, len(alerting.DefaultRules())+1)

	rec = doJSON(t, h, http.MethodPatch, "/api/alerts/rules/cpu-burn", map[string]any{
		"threshold": 50.0,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/alerts/rules/no-such-rule", map[string]any{
		"threshold": 50.0,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/alerts/rules/cpu-burn", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, engine.Rules(), len(alerting.DefaultRules()))
}

func TestRuleLifecycle_InvalidCooldown(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/alerts/rules", map[string]any{
		"id":       "bad-cooldown",
		"metric":   "cpu.userMs",
		"operator": ">",
		"severity": "low",
		"cooldown": "five minutes",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertAckResolve_NotFound(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodPost, "/api/alerts/nope/ack", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodPost, "/api/alerts/nope/resolve", nil).Code)
}

func TestThreatBlockUnblock(t *testing.T) {
	srv, _, _, tracker, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/threats/198.51.100.7/block", map[string]any{
		"reason": "abuse report",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, tracker.IsBlocked("198.51.100.7"))

	rec = doJSON(t, h, http.MethodPost, "/api/threats/198.51.100.7/unblock", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, tracker.IsBlocked("198.51.100.7"))

	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodPost, "/api/threats/203.0.113.1/unblock", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/api/threats/203.0.113.1", nil).Code)
}

func TestBlockGate(t *testing.T) {
	srv, _, _, tracker, _ := newTestServer(t)

	// httptest requests arrive from 192.0.2.1.
	tracker.Block("192.0.2.1", "test block")

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReset(t *testing.T) {
	srv, collector, _, _, _ := newTestServer(t)
	collector.Observe("/x", "GET", 10, 200)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/admin/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The reset request itself is instrumented after the handler runs.
	assert.Equal(t, int64(1), collector.CurrentSnapshot().RequestCount)
}
