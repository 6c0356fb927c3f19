// Per-component configuration sections.
package config

import (
	"fmt"
	"time"

	"github.com/perchsec/sentinel/internal/monitoring"
)

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"` // Max time to write response
}

// Validate checks required server fields.
func (c ServerConfig) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Port)
	}
	if c.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}
	return nil
}

// MonitoringConfig contains logging, sampling and monitor tick settings.
type MonitoringConfig struct {
	Log     monitoring.LoggerConfig  `yaml:"log"`
	Monitor monitoring.MonitorConfig `yaml:"monitor"`

	// SampleCapacity bounds the request sample ring; 0 uses the default.
	SampleCapacity int `yaml:"sample_capacity"`
}

// Validate checks monitoring fields.
func (c MonitoringConfig) Validate() error {
	if c.SampleCapacity < 0 {
		return fmt.Errorf("monitoring.sample_capacity must not be negative")
	}
	if c.Monitor.RefreshInterval < 0 || c.Monitor.SweepInterval < 0 {
		return fmt.Errorf("monitoring.monitor intervals must not be negative")
	}
	return nil
}

// ThreatConfig contains threat persistence and audit settings.
type ThreatConfig struct {
	// DatabasePath is the sqlite file for profile persistence. Empty
	// disables persistence and the tracker runs memory-only.
	DatabasePath string `yaml:"database_path"`
	// AuditLogPath is the JSONL audit trail. Empty disables the trail.
	AuditLogPath string `yaml:"audit_log_path"`
}

// Validate checks threat fields.
func (c ThreatConfig) Validate() error { return nil }

// NotifyConfig contains downstream notification channel settings.
type NotifyConfig struct {
	WebhookURL      string        `yaml:"webhook_url"`      // empty disables the webhook channel
	WebhookTimeout  time.Duration `yaml:"webhook_timeout"`  // 0 uses the default
	EmailRecipients []string      `yaml:"email_recipients"` // empty disables the email channel
}
