package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "json", "debug")
	log.Debug("query refreshed", "query", "stats")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "query refreshed", line["msg"])
	assert.Equal(t, "stats", line["query"])
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "pretty", "warn")

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.With("component", "booking").Warn("payment rejected", "error", errors.New("declined"))
	assert.Contains(t, buf.String(), "payment rejected")
	assert.Contains(t, buf.String(), "component")
	assert.Contains(t, buf.String(), "declined")
}

func TestPrettyHandlerNilLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	h := NewPrettyHandler(&bytes.Buffer{}, nil)
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "0123456789abcdef")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "0123456789abcdef", SessionID(ctx))
	assert.Equal(t, "01234567", shortID(SessionID(ctx)))
	assert.Empty(t, RequestID(context.Background()))
	assert.NotNil(t, WithContext(ctx))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
