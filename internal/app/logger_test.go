package app

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/config"
)

func captureLogOutput(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	orig := logOutput
	logOutput = f
	t.Cleanup(func() {
		logOutput = orig
		_ = f.Close()
	})
	return f
}

func TestNewLogger_WritesJSONAtConfiguredLevel(t *testing.T) {
	f := captureLogOutput(t)

	cfg := memoryConfig()
	cfg.Log = config.Log{Level: "warn", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("slot uncovered")

	raw, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	require.Equal(t, "slot uncovered", entry["msg"])
	require.Equal(t, "service-fulfillment", entry["service"])
}

func TestNewLogger_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Log = config.Log{Format: "xml"}
	_, err := NewLogger(cfg)
	require.Error(t, err)
}
