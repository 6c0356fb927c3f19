// Package threat tracks per-source security events and escalates severity.
//
// DESIGN: The Tracker exclusively owns the profile map. Each profile keeps a
// bounded FIFO history of its events; severity is recomputed from the
// rolling 24-hour window on every recorded event. A profile whose computed
// severity reaches critical is auto-blocked; blocked is terminal until an
// explicit manual unblock.
package threat

import (
	"time"

	"github.com/perchsec/sentinel/internal/monitoring"
)

// ProfileHistoryLimit bounds the per-profile event history (FIFO eviction).
const ProfileHistoryLimit = 50

// SeverityWindow is the rolling window severity is computed over.
const SeverityWindow = 24 * time.Hour

// ThreatEvent is one recorded security event for a traffic source.
type ThreatEvent struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Source    string              `json:"source"` // e.g. client IP
	UserAgent string              `json:"userAgent,omitempty"`
	UserID    string              `json:"userId,omitempty"`
	Type      string              `json:"type"` // e.g. "SCANNING_ATTEMPT"
	Severity  monitoring.Severity `json:"severity"`
	Detail    map[string]any      `json:"detail,omitempty"`
	Action    string              `json:"action,omitempty"`
}

// ThreatProfile is the accumulated risk state for one source.
type ThreatProfile struct {
	Source      string              `json:"source"`
	FirstSeen   time.Time           `json:"firstSeen"`
	LastSeen    time.Time           `json:"lastSeen"`
	EventCount  int                 `json:"eventCount"` // cumulative, not bounded
	Events      []ThreatEvent       `json:"events"`     // last ProfileHistoryLimit events
	Severity    monitoring.Severity `json:"severity"`
	Blocked     bool                `json:"blocked"`
	BlockedAt   *time.Time          `json:"blockedAt,omitempty"`
	BlockReason string              `json:"blockReason,omitempty"`
}

// SourceCount is one entry of a top-sources ranking.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Statistics summarizes all tracked profiles.
type Statistics struct {
	TotalProfiles int                         `json:"totalProfiles"`
	Blocked       int                         `json:"blocked"`
	BySeverity    map[monitoring.Severity]int `json:"bySeverity"`
	TopSources    []SourceCount               `json:"topSources"`
}

// severityFor applies the escalation rules to the events inside the rolling
// window ending at now.
func severityFor(events []ThreatEvent, now time.Time) monitoring.Severity {
	cutoff := now.Add(-SeverityWindow)

	var total, critical, high int
	for _, e := range events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		total++
		switch e.Severity {
		case monitoring.SeverityCritical:
			critical++
		case monitoring.SeverityHigh:
			high++
		}
	}

	switch {
	case critical >= 3 || total >= 50:
		return monitoring.SeverityCritical
	case critical >= 1 || high >= 5 || total >= 20:
		return monitoring.SeverityHigh
	case high >= 2 || total >= 10:
		return monitoring.SeverityMedium
	default:
		return monitoring.SeverityLow
	}
}
