package monitoring_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchsec/sentinel/internal/monitoring"
)

func TestGlobal_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.log")
	monitoring.Global(monitoring.LoggerConfig{Level: "debug", Format: "json", Output: path})
	defer monitoring.Global(monitoring.LoggerConfig{Level: "info"})

	log.Info().Str("component", "test").Msg("logger configured")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "logger configured")
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestGlobal_UnknownLevelFallsBack(t *testing.T) {
	assert.NotPanics(t, func() {
		monitoring.Global(monitoring.LoggerConfig{Level: "loudest"})
	})
	monitoring.Global(monitoring.LoggerConfig{Level: "info"})
}

func TestRequestIDContext(t *testing.T) {
	ctx := monitoring.WithRequestIDContext(context.Background(), "req-42")
	assert.Equal(t, "req-42", monitoring.RequestIDFromContext(ctx))
	assert.Equal(t, "", monitoring.RequestIDFromContext(context.Background()))
}
