// Package threat - tracker.go owns the per-source profile map.
package threat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/perchsec/sentinel/internal/monitoring"
)

// Tracker accumulates security events per source and maintains the derived
// threat profiles. Safe for concurrent use. Nothing on the record path
// touches disk; persistence happens on the sweep tick.
type Tracker struct {
	clock   monitoring.Clock
	store   ProfileStore
	audit   *AuditLog
	onBlock func(profile ThreatProfile, auto bool, reason string)

	mu       sync.Mutex
	profiles map[string]*ThreatProfile
	dirty    map[string]struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithStore attaches a persistence store. Profiles are loaded once at
// construction; failed loads and saves are logged and never propagated.
func WithStore(store ProfileStore) TrackerOption {
	return func(t *Tracker) { t.store = store }
}

// WithAudit attaches a JSONL audit trail for recorded events.
func WithAudit(audit *AuditLog) TrackerOption {
	return func(t *Tracker) { t.audit = audit }
}

// WithBlockHook registers a callback invoked outside the tracker lock
// whenever a source is blocked, automatically or manually.
func WithBlockHook(hook func(profile ThreatProfile, auto bool, reason string)) TrackerOption {
	return func(t *Tracker) { t.onBlock = hook }
}

// NewTracker creates a tracker. A nil clock defaults to the system clock.
func NewTracker(clock monitoring.Clock, opts ...TrackerOption) *Tracker {
	if clock == nil {
		clock = monitoring.SystemClock()
	}
	t := &Tracker{
		clock:    clock,
		profiles: map[string]*ThreatProfile{},
		dirty:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.loadProfiles()
	return t
}

func (t *Tracker) loadProfiles() {
	if t.store == nil {
		return
	}
	profiles, err := t.store.Load()
	if err != nil {
		log.Error().Err(err).Msg("threat: failed to load profiles, starting empty")
		return
	}
	for _, p := range profiles {
		profile := p
		t.profiles[profile.Source] = &profile
	}
	if len(profiles) > 0 {
		log.Info().Int("profiles", len(profiles)).Msg("threat: profiles loaded")
	}
}

// RecordEvent records a security event for its source, creating the profile
// on first sight. The profile's severity is recomputed from the rolling
// 24-hour window; a profile newly reaching critical is auto-blocked.
// Always succeeds; returns the updated profile.
func (t *Tracker) RecordEvent(event ThreatEvent) ThreatProfile {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.clock.Now()
	}

	t.mu.Lock()
	p, ok := t.profiles[event.Source]
	if !ok {
		p = &ThreatProfile{
			Source:    event.Source,
			FirstSeen: event.Timestamp,
			Severity:  monitoring.SeverityLow,
		}
		t.profiles[event.Source] = p
	}

	p.Events = append(p.Events, event)
	if len(p.Events) > ProfileHistoryLimit {
		p.Events = p.Events[len(p.Events)-ProfileHistoryLimit:]
	}
	p.EventCount++
	p.LastSeen = event.Timestamp
	p.Severity = severityFor(p.Events, event.Timestamp)

	autoBlocked := false
	if p.Severity == monitoring.SeverityCritical && !p.Blocked {
		p.Blocked = true
		blockedAt := event.Timestamp
		p.BlockedAt = &blockedAt
		p.BlockReason = "auto-blocked: critical threat severity"
		autoBlocked = true
	}
	t.dirty[p.Source] = struct{}{}
	snapshot := copyProfile(p)
	t.mu.Unlock()

	if t.audit != nil {
		t.audit.Record(event)
	}
	if autoBlocked {
		log.Warn().
			Str("source", snapshot.Source).
			Int("events", snapshot.EventCount).
			Msg("threat: source auto-blocked")
		if t.onBlock != nil {
			t.onBlock(snapshot, true, snapshot.BlockReason)
		}
	}
	return snapshot
}

// IsBlocked reports whether a source is currently blocked. O(1); intended
// as a fast-path gate before any expensive request processing.
func (t *Tracker) IsBlocked(source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.profiles[source]
	return ok && p.Blocked
}

// Block manually blocks a source, creating its profile if absent. It does
// not touch severity computation.
func (t *Tracker) Block(source, reason string) {
	now := t.clock.Now()

	t.mu.Lock()
	p, ok := t.profiles[source]
	if !ok {
		p = &ThreatProfile{
			Source:    source,
			FirstSeen: now,
			LastSeen:  now,
			Severity:  monitoring.SeverityLow,
		}
		t.profiles[source] = p
	}
	p.Blocked = true
	p.BlockedAt = &now
	p.BlockReason = reason
	t.dirty[source] = struct{}{}
	snapshot := copyProfile(p)
	t.mu.Unlock()

	log.Info().Str("source", source).Str("reason", reason).Msg("threat: source blocked")
	if t.onBlock != nil {
		t.onBlock(snapshot, false, reason)
	}
}

// Unblock clears a source's blocked flag without altering its computed
// severity. Returns false when the source is unknown.
func (t *Tracker) Unblock(source string) bool {
	t.mu.Lock()
	p, ok := t.profiles[source]
	if !ok {
		t.mu.Unlock()
		return false
	}
	p.Blocked = false
	p.BlockedAt = nil
	p.BlockReason = ""
	t.dirty[source] = struct{}{}
	t.mu.Unlock()

	log.Info().Str("source", source).Msg("threat: source unblocked")
	return true
}

// Profile returns a copy of one source's profile.
func (t *Tracker) Profile(source string) (ThreatProfile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.profiles[source]
	if !ok {
		return ThreatProfile{}, false
	}
	return copyProfile(p), true
}

// Statistics summarizes all tracked profiles.
func (t *Tracker) Statistics() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Statistics{
		TotalProfiles: len(t.profiles),
		BySeverity:    map[monitoring.Severity]int{},
	}
	ranked := make([]SourceCount, 0, len(t.profiles))
	for _, p := range t.profiles {
		if p.Blocked {
			stats.Blocked++
		}
		stats.BySeverity[p.Severity]++
		ranked = append(ranked, SourceCount{Source: p.Source, Count: p.EventCount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Source < ranked[j].Source
	})
	if len(ranked) > TopSourceLimit {
		ranked = ranked[:TopSourceLimit]
	}
	stats.TopSources = ranked
	return stats
}

// TopSourceLimit caps the top-sources ranking in statistics.
const TopSourceLimit = 10

// Sweep recomputes severities as events age out of the rolling window and
// flushes dirty profiles to the store. Blocked sources stay blocked even
// when their computed severity decays. Runs on the monitor sweep tick, off
// the request path; save failures are logged and never propagated.
func (t *Tracker) Sweep(now time.Time) {
	t.mu.Lock()
	for source, p := range t.profiles {
		recomputed := severityFor(p.Events, now)
		if recomputed != p.Severity {
			p.Severity = recomputed
			t.dirty[source] = struct{}{}
		}
	}
	var pending []ThreatProfile
	for source := range t.dirty {
		if p, ok := t.profiles[source]; ok {
			pending = append(pending, copyProfile(p))
		}
	}
	t.dirty = map[string]struct{}{}
	t.mu.Unlock()

	if t.store == nil {
		return
	}
	for _, p := range pending {
		if err := t.store.Save(p); err != nil {
			log.Error().Err(err).Str("source", p.Source).Msg("threat: profile save failed")
		}
	}
}

func copyProfile(p *ThreatProfile) ThreatProfile {
	out := *p
	out.Events = make([]ThreatEvent, len(p.Events))
	copy(out.Events, p.Events)
	if p.BlockedAt != nil {
		blockedAt := *p.BlockedAt
		out.BlockedAt = &blockedAt
	}
	return out
}
