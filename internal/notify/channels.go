// Package notify - channels.go implements the built-in channel senders.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// LOG CHANNEL - always registered, synchronous
// =============================================================================

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

// Name implements Notifier.
func (LogNotifier) Name() string { return ChannelLog }

// Send implements Notifier.
func (LogNotifier) Send(n Notification) error {
	event := log.Info()
	switch n.Urgency {
	case UrgencyUrgent:
		event = log.Error()
	case UrgencyHigh, UrgencyMedium:
		event = log.Warn()
	}
	event.
		Str("id", n.ID).
		Str("kind", n.Kind).
		Str("severity", string(n.Severity)).
		Str("urgency", string(n.Urgency)).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}

// =============================================================================
// EMAIL CHANNEL - delivery stub
// =============================================================================

// EmailNotifier is a pluggable stub: it records what would be sent. Real
// delivery belongs to the host application's mail infrastructure.
type EmailNotifier struct {
	Recipients []string
}

// Name implements Notifier.
func (e *EmailNotifier) Name() string { return ChannelEmail }

// Send implements Notifier.
func (e *EmailNotifier) Send(n Notification) error {
	log.Info().
		Str("id", n.ID).
		Strs("recipients", e.Recipients).
		Str("subject", fmt.Sprintf("[%s] %s", n.Urgency, n.Title)).
		Msg("email notification queued")
	return nil
}

// =============================================================================
// WEBHOOK CHANNEL - fire-and-forget HTTP POST
// =============================================================================

// WebhookNotifier posts notifications as JSON to a configured URL.
type WebhookNotifier struct {
	URL    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook sender with a bounded timeout.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{URL: url, client: &http.Client{Timeout: timeout}}
}

// Name implements Notifier.
func (w *WebhookNotifier) Name() string { return ChannelWebhook }

// Send implements Notifier.
func (w *WebhookNotifier) Send(n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	resp, err := w.client.Post(w.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// STREAM CHANNEL - live websocket feed for dashboards
// =============================================================================

// StreamHub broadcasts notifications to subscribed websocket clients.
// Connections that fail a write are dropped.
type StreamHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewStreamHub creates an empty hub.
func NewStreamHub() *StreamHub {
	return &StreamHub{conns: map[*websocket.Conn]struct{}{}}
}

// Name implements Notifier.
func (h *StreamHub) Name() string { return ChannelStream }

// Subscribe registers a client connection.
func (h *StreamHub) Subscribe(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

// Unsubscribe removes a client connection.
func (h *StreamHub) Unsubscribe(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (h *StreamHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Send implements Notifier, broadcasting the notification to every
// subscriber with a bounded per-write deadline.
func (h *StreamHub) Send(n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			log.Debug().Err(err).Msg("stream: dropping dead subscriber")
			h.Unsubscribe(c)
			c.Close(websocket.StatusGoingAway, "write failed")
		}
	}
	return nil
}
