// Package threat - audit.go appends security events to a JSONL file.
//
// DESIGN: One JSON object per line, appended as events arrive. Writes go
// through a bounded queue drained by a single writer goroutine so the
// record path never blocks on disk; a full queue drops the event with a
// log line rather than stalling a request.
package threat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// AuditLog records threat events to a JSONL file.
type AuditLog struct {
	path  string
	queue chan ThreatEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewAuditLog creates the audit file (and parent directory) if missing and
// starts the writer goroutine.
func NewAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	f.Close()

	a := &AuditLog{
		path:  path,
		queue: make(chan ThreatEvent, 256),
		done:  make(chan struct{}),
	}
	go a.writeLoop()
	return a, nil
}

// Record enqueues an event for appending. Never blocks; drops on overflow
// and after Close.
func (a *AuditLog) Record(event ThreatEvent) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		log.Warn().Str("source", event.Source).Msg("audit: log closed, event dropped")
		return
	}
	select {
	case a.queue <- event:
	default:
		log.Warn().Str("source", event.Source).Msg("audit: queue full, event dropped")
	}
}

// Close drains pending events and stops the writer. Safe to call twice;
// Record calls racing Close are dropped, never panicked on.
func (a *AuditLog) Close() error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		close(a.queue)
		<-a.done
	})
	return nil
}

func (a *AuditLog) writeLoop() {
	defer close(a.done)
	for event := range a.queue {
		if err := a.append(event); err != nil {
			log.Error().Err(err).Str("path", a.path).Msg("audit: failed to write event")
		}
	}
}

func (a *AuditLog) append(event ThreatEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}
