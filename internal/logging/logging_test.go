package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.WarnLevel},
		{"debug", zapcore.DebugLevel},
		{" INFO ", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Warn("cache file is corrupt", zap.String("path", "/tmp/cache.json"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "cache file is corrupt", entry["msg"])
	assert.Equal(t, "/tmp/cache.json", entry["path"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, entry["ts"])
}

func TestNew_ConsoleDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "", "")
	require.NoError(t, err)

	logger.Info("cache hit")
	logger.Error("cache write failed")

	out := buf.String()
	assert.NotContains(t, out, "cache hit")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "cache write failed")
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "chatty", FormatJSON)
	assert.Error(t, err)
}
