package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldConstructors(t *testing.T) {
	now := time.Now()
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "k", Value: 1}, Int("k", 1))
	assert.Equal(t, Field{Key: "k", Value: int64(2)}, Int64("k", 2))
	assert.Equal(t, Field{Key: "k", Value: true}, Bool("k", true))
	assert.Equal(t, Field{Key: "k", Value: now}, Time("k", now))
	assert.Equal(t, Field{Key: "date", Value: "2024-03-09"}, Date("date", day))
	assert.Equal(t, Field{Key: "k", Value: time.Second}, Duration("k", time.Second))
	assert.Equal(t, Field{Key: "err", Value: "boom"}, Err(errors.New("boom")))
	assert.Equal(t, Field{Key: "err", Value: nil}, Err(nil))
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Debug("d", String("k", "v"))
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	require.NoError(t, l.With(String("x", "y")).Sync())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNew_JSONWritesTypedFieldsAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	l.Debug("hidden")
	l.With(String("component", "ledger")).Info("slot admitted",
		Int64("slot_id", 7),
		Date("date", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		Bool("admitted", true),
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "slot admitted", entry["msg"])
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, float64(7), entry["slot_id"])
	assert.Equal(t, "2024-01-02", entry["date"])
	assert.Equal(t, true, entry["admitted"])
}

func TestNew_TextAndUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "debug", FormatText)
	require.NoError(t, err)
	l.Warn("capacity low", Int("remaining", 1))
	assert.Contains(t, buf.String(), "remaining=1")

	_, err = New(&buf, "info", "xml")
	require.Error(t, err)
	_, err = New(&buf, "loud", FormatJSON)
	require.Error(t, err)
}
