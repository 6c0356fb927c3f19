// Package notify fans triggered alerts and threat events out to channels.
//
// DESIGN: The Dispatcher holds no state beyond its channel registrations.
// Severity maps to an urgency and default channel set; the log channel is
// invoked synchronously, every other channel is fire-and-forget. A failing
// or panicking sender is logged and never propagates to the caller.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perchsec/sentinel/internal/alerting"
	"github.com/perchsec/sentinel/internal/monitoring"
	"github.com/perchsec/sentinel/internal/threat"
)

// Urgency is the delivery priority derived from severity.
type Urgency string

const (
	UrgencyInfo   Urgency = "info"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Channel names.
const (
	ChannelLog     = "log"
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
	ChannelStream  = "stream"
)

// Notification is the channel-neutral payload handed to senders.
type Notification struct {
	ID        string              `json:"id"`
	Kind      string              `json:"kind"` // "alert" or "threat"
	Severity  monitoring.Severity `json:"severity"`
	Urgency   Urgency             `json:"urgency"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Source    string              `json:"source,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Channels  []string            `json:"channels"`
}

// Notifier sends notifications over one channel.
type Notifier interface {
	Name() string
	Send(n Notification) error
}

// UrgencyFor maps severity to urgency and its default channel set.
func UrgencyFor(s monitoring.Severity) (Urgency, []string) {
	switch s {
	case monitoring.SeverityCritical:
		return UrgencyUrgent, []string{ChannelLog, ChannelEmail}
	case monitoring.SeverityHigh:
		return UrgencyHigh, []string{ChannelLog}
	case monitoring.SeverityMedium:
		return UrgencyMedium, []string{ChannelLog}
	default:
		return UrgencyInfo, []string{ChannelLog}
	}
}

// Dispatcher fans notifications out to registered channels.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Notifier
}

// NewDispatcher creates a dispatcher with no channels registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{channels: map[string]Notifier{}}
}

// Register adds (or replaces) a channel sender.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	d.channels[n.Name()] = n
	d.mu.Unlock()
}

// Dispatch delivers the notification to its channels. The log channel runs
// synchronously; everything else runs fire-and-forget. A notification with
// no explicit channels gets the default set for its severity.
func (d *Dispatcher) Dispatch(n Notification) {
	if n.Urgency == "" || len(n.Channels) == 0 {
		urgency, channels := UrgencyFor(n.Severity)
		if n.Urgency == "" {
			n.Urgency = urgency
		}
		if len(n.Channels) == 0 {
			n.Channels = channels
		}
	}

	d.mu.RLock()
	senders := make([]Notifier, 0, len(n.Channels))
	for _, name := range n.Channels {
		if sender, ok := d.channels[name]; ok {
			senders = append(senders, sender)
		}
	}
	d.mu.RUnlock()

	for _, sender := range senders {
		if sender.Name() == ChannelLog {
			d.send(sender, n)
			continue
		}
		go d.send(sender, n)
	}
}

func (d *Dispatcher) send(sender Notifier, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("channel", sender.Name()).
				Interface("panic", r).
				Msg("notification sender panicked")
		}
	}()
	if err := sender.Send(n); err != nil {
		log.Error().Err(err).Str("channel", sender.Name()).Str("id", n.ID).Msg("notification send failed")
	}
}

// FromAlert converts a fired alert into a notification, honoring the
// rule's channel flags on top of the severity defaults.
func FromAlert(a alerting.AlertNotification) Notification {
	urgency, channels := UrgencyFor(a.Severity)
	if a.Channels.Email && !contains(channels, ChannelEmail) {
		channels = append(channels, ChannelEmail)
	}
	if a.Channels.Webhook {
		channels = append(channels, ChannelWebhook)
	}
	channels = append(channels, ChannelStream)

	return Notification{
		ID:        a.ID,
		Kind:      "alert",
		Severity:  a.Severity,
		Urgency:   urgency,
		Title:     a.RuleName,
		Message:   a.Message,
		Timestamp: a.TriggeredAt,
		Channels:  channels,
	}
}

// FromBlockedProfile converts a block transition into a notification.
func FromBlockedProfile(p threat.ThreatProfile, auto bool, reason string) Notification {
	title := "Source blocked"
	if auto {
		title = "Source auto-blocked"
	}
	urgency, channels := UrgencyFor(monitoring.SeverityCritical)
	channels = append(channels, ChannelStream)

	return Notification{
		ID:        fmt.Sprintf("block-%s-%d", p.Source, p.EventCount),
		Kind:      "threat",
		Severity:  monitoring.SeverityCritical,
		Urgency:   urgency,
		Title:     title,
		Message:   fmt.Sprintf("%s: %s (%d events)", title, p.Source, p.EventCount),
		Source:    p.Source,
		Timestamp: p.LastSeen,
		Channels:  channels,
	}
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
