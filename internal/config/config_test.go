package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchsec/sentinel/internal/config"
)

const validYAML = `
server:
  port: 8090
  read_timeout: 15s
  write_timeout: 30s
monitoring:
  log:
    level: info
    format: json
    output: stdout
  monitor:
    refresh_interval: 30s
    sweep_interval: 60s
  sample_capacity: 500
threat:
  database_path: data/threats.db
  audit_log_path: data/audit.jsonl
notify:
  webhook_url: http://hooks.internal/alerts
  webhook_timeout: 5s
  email_recipients: [ops@example.com]
`

func TestLoadFromBytes_Valid(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 500, cfg.Monitoring.SampleCapacity)
	assert.Equal(t, 30*time.Second, cfg.Monitoring.Monitor.RefreshInterval)
	assert.Equal(t, "data/threats.db", cfg.Threat.DatabasePath)
	assert.Equal(t, "http://hooks.internal/alerts", cfg.Notify.WebhookURL)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Notify.EmailRecipients)
}

func TestLoadFromBytes_MissingPort(t *testing.T) {
	yaml := `
server:
  read_timeout: 15s
  write_timeout: 30s
`
	_, err := config.LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SENTINEL_PORT", "9001")

	yaml := `
server:
  port: ${TEST_SENTINEL_PORT:-8090}
  read_timeout: 15s
  write_timeout: 30s
`
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestLoadFromBytes_EnvDefault(t *testing.T) {
	yaml := `
server:
  port: ${TEST_SENTINEL_UNSET_PORT:-8090}
  read_timeout: 15s
  write_timeout: 30s
`
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestLoadFromBytes_NegativeCapacityRejected(t *testing.T) {
	yaml := `
server:
  port: 8090
  read_timeout: 15s
  write_timeout: 30s
monitoring:
  sample_capacity: -5
`
	_, err := config.LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_capacity")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("does/not/exist.yaml")
	require.Error(t, err)

	_, err = config.Load("")
	require.Error(t, err)
}
