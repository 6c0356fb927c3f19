// Package alerting - engine.go holds the rule engine.
package alerting

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/perchsec/sentinel/internal/monitoring"
)

// HistoryLimit bounds the retained alert history; oldest entries are
// truncated beyond it.
const HistoryLimit = 1000

// Engine owns the rule set, the active-alert registry and the bounded
// history. Safe for concurrent use.
type Engine struct {
	clock monitoring.Clock
	sink  func(AlertNotification)

	mu      sync.Mutex
	rules   map[string]*AlertRule
	order   []string // rule evaluation order = insertion order
	active  map[string]*AlertNotification
	history []*AlertNotification
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink registers a callback invoked for every newly fired alert,
// outside the engine lock. Used to hand alerts to notification dispatch.
func WithSink(sink func(AlertNotification)) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithoutDefaultRules starts the engine with an empty rule set.
func WithoutDefaultRules() Option {
	return func(e *Engine) {
		e.rules = map[string]*AlertRule{}
		e.order = nil
	}
}

// NewEngine creates an engine pre-loaded with the default rule set.
// A nil clock defaults to the system clock.
func NewEngine(clock monitoring.Clock, opts ...Option) *Engine {
	if clock == nil {
		clock = monitoring.SystemClock()
	}
	e := &Engine{
		clock:  clock,
		rules:  map[string]*AlertRule{},
		active: map[string]*AlertNotification{},
	}
	for _, r := range DefaultRules() {
		rule := r
		e.rules[rule.ID] = &rule
		e.order = append(e.order, rule.ID)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRule validates and installs a rule. The rule set is unchanged on error.
func (e *Engine) AddRule(rule AlertRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.rules[rule.ID]; exists {
		return fmt.Errorf("rule %q already exists", rule.ID)
	}
	r := rule
	e.rules[r.ID] = &r
	e.order = append(e.order, r.ID)

	log.Info().Str("rule_id", r.ID).Str("metric", r.Metric).Msg("alert rule added")
	return nil
}

// RemoveRule deletes a rule. Returns false when the id is unknown.
func (e *Engine) RemoveRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.rules[id]; !exists {
		return false
	}
	delete(e.rules, id)
	for i, rid := range e.order {
		if rid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}

	log.Info().Str("rule_id", id).Msg("alert rule removed")
	return true
}

// UpdateRule applies a partial edit. The first return is false when the id
// is unknown; a validation error leaves the rule unchanged.
func (e *Engine) UpdateRule(id string, update RuleUpdate) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, exists := e.rules[id]
	if !exists {
		return false, nil
	}

	edited := *rule
	if update.Name != nil {
		edited.Name = *update.Name
	}
	if update.Description != nil {
		edited.Description = *update.Description
	}
	if update.Metric != nil {
		edited.Metric = *update.Metric
	}
	if update.Operator != nil {
		edited.Operator = *update.Operator
	}
	if update.Threshold != nil {
		edited.Threshold = *update.Threshold
	}
	if update.Severity != nil {
		edited.Severity = *update.Severity
	}
	if update.Cooldown != nil {
		edited.Cooldown = *update.Cooldown
	}
	if update.Enabled != nil {
		edited.Enabled = *update.Enabled
	}
	if update.Channels != nil {
		edited.Channels = *update.Channels
	}
	if err := validateRule(edited); err != nil {
		return true, err
	}
	*rule = edited

	log.Info().Str("rule_id", id).Msg("alert rule updated")
	return true, nil
}

// Rules returns a copy of the rule set in evaluation order.
func (e *Engine) Rules() []AlertRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]AlertRule, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.rules[id])
	}
	return out
}

// Evaluate checks every enabled rule against the snapshot, in rule
// insertion order. A rule fires when its metric path resolves, the
// comparison holds and its cooldown has expired; firing marks
// lastTriggeredAt in the same critical section so concurrent evaluations
// cannot double-fire within one cooldown window. Newly fired alerts are
// recorded active, appended to history and returned.
func (e *Engine) Evaluate(snap monitoring.SystemMetricsSnapshot) []AlertNotification {
	doc := MetricDocument(snap)
	now := e.clock.Now()

	e.mu.Lock()
	var fired []AlertNotification
	for _, id := range e.order {
		rule := e.rules[id]
		if !rule.Enabled {
			continue
		}
		value, ok := ResolveMetric(doc, rule.Metric)
		if !ok {
			continue
		}
		if !rule.Operator.compare(value, rule.Threshold) {
			continue
		}
		if rule.LastTriggeredAt != nil && now.Sub(*rule.LastTriggeredAt) < rule.Cooldown {
			continue
		}

		triggered := now
		rule.LastTriggeredAt = &triggered

		alert := &AlertNotification{
			ID:          uuid.New().String(),
			RuleID:      rule.ID,
			RuleName:    rule.Name,
			Metric:      rule.Metric,
			Threshold:   rule.Threshold,
			Severity:    rule.Severity,
			Value:       value,
			Message:     fmt.Sprintf("%s: %s %s %.2f (current value %.2f)", rule.Name, rule.Metric, rule.Operator, rule.Threshold, value),
			TriggeredAt: now,
			Channels:    rule.Channels,
		}
		e.active[alert.ID] = alert
		e.history = append(e.history, alert)
		if len(e.history) > HistoryLimit {
			e.history = e.history[len(e.history)-HistoryLimit:]
		}
		fired = append(fired, *alert)
	}
	e.mu.Unlock()

	for _, alert := range fired {
		log.Warn().
			Str("alert_id", alert.ID).
			Str("rule_id", alert.RuleID).
			Str("severity", string(alert.Severity)).
			Float64("value", alert.Value).
			Msg("alert triggered")
		if e.sink != nil {
			e.sink(alert)
		}
	}
	return fired
}

// Acknowledge marks an active alert acknowledged. Returns false when the
// alert id is not active.
func (e *Engine) Acknowledge(alertID, by string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	alert, ok := e.active[alertID]
	if !ok {
		return false
	}
	now := e.clock.Now()
	alert.AcknowledgedBy = by
	alert.AcknowledgedAt = &now
	return true
}

// Resolve removes an alert from the active registry and marks the retained
// history entry resolved. Returns false when the id is not active.
func (e *Engine) Resolve(alertID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	alert, ok := e.active[alertID]
	if !ok {
		return false
	}
	delete(e.active, alertID)
	now := e.clock.Now()
	alert.Resolved = true
	alert.ResolvedAt = &now
	return true
}

// ActiveAlerts returns copies of currently open alerts, most recent first.
// The active registry is authoritative: alerts stay visible here even after
// history truncation evicts their retained entry.
func (e *Engine) ActiveAlerts() []AlertNotification {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]AlertNotification, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].TriggeredAt.After(out[j].TriggeredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// History returns up to limit retained alerts, most recent first.
// A non-positive limit returns the full history.
func (e *Engine) History(limit int) []AlertNotification {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]AlertNotification, 0, n)
	for i := len(e.history) - 1; i >= len(e.history)-n; i-- {
		out = append(out, *e.history[i])
	}
	return out
}

// Statistics summarizes active alerts by severity and metric, plus the mean
// resolution time among resolved history entries.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Statistics{
		Active:     len(e.active),
		BySeverity: map[monitoring.Severity]int{},
		ByMetric:   map[string]int{},
	}
	for _, a := range e.active {
		stats.BySeverity[a.Severity]++
		stats.ByMetric[a.Metric]++
	}

	var totalMs float64
	for _, a := range e.history {
		if a.Resolved && a.ResolvedAt != nil {
			stats.ResolvedCount++
			totalMs += float64(a.ResolvedAt.Sub(a.TriggeredAt)) / float64(time.Millisecond)
		}
	}
	if stats.ResolvedCount > 0 {
		stats.MeanResolutionMs = totalMs / float64(stats.ResolvedCount)
	}
	return stats
}
