package threat_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchsec/sentinel/internal/monitoring"
	"github.com/perchsec/sentinel/internal/threat"
)

func TestAuditLog_AppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "events.jsonl")
	audit, err := threat.NewAuditLog(path)
	require.NoError(t, err)

	for _, source := range []string{"10.0.0.1", "10.0.0.2"} {
		audit.Record(threat.ThreatEvent{
			ID:        source,
			Source:    source,
			Type:      "SCANNING_ATTEMPT",
			Severity:  monitoring.SeverityHigh,
			Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		})
	}
	require.NoError(t, audit.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"source":"10.0.0.1"`)
	assert.Contains(t, lines[1], `"source":"10.0.0.2"`)
}

func TestAuditLog_RecordAfterCloseIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	audit, err := threat.NewAuditLog(path)
	require.NoError(t, err)
	require.NoError(t, audit.Close())

	assert.NotPanics(t, func() {
		audit.Record(threat.ThreatEvent{Source: "10.0.0.3", Type: "EVENT_AFTER_SHUTDOWN"})
	})
	require.NoError(t, audit.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(data)))
}