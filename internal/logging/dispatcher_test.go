package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(*DispatcherLogger)
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("msg", "command", "fire", "queued", 3) }},
		{"info", func(l *DispatcherLogger) { l.Info("msg", "command", "fire", "queued", 3) }},
		{"error", func(l *DispatcherLogger) { l.Error("msg", "command", "fire", "queued", 3) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
			tt.log(dl)

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "msg", entry["message"])
			assert.Equal(t, "fire", entry["command"])
			assert.Equal(t, float64(3), entry["queued"])
		})
	}
}

func TestDispatcherLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	dl.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestToFields_SkipsMalformedPairs(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "b", "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}

func TestDispatcherLogger_DebugIsSampled(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	for range 50 {
		dl.Debug("handling event", "command", ":REQUEST:fire:")
	}
	lines := strings.Count(buf.String(), "\n")
	assert.GreaterOrEqual(t, lines, 5)
	assert.Less(t, lines, 50)

	buf.Reset()
	for range 50 {
		dl.Error("event failed", "command", ":REQUEST:fire:")
	}
	assert.Equal(t, 50, strings.Count(buf.String(), "\n"))
}

func TestDispatcherLogger_RendersErrors(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))
	dl.Error("event failed", "error", errors.New("boom"), "player", 2)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(2), entry["player"])
}
