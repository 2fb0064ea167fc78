package logger

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

func TestNew(t *testing.T) {
	t.Run("creates with default config", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("writes json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := New(&Config{Level: "debug", Format: "json", Output: buf})
		require.NoError(t, err)

		l.Info("test message", zap.String("session_id", "abc"))
		require.NoError(t, l.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "test message", entry["msg"])
		assert.Equal(t, "abc", entry["session_id"])
		assert.Equal(t, "info", entry["level"])
	})

	t.Run("writes console", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := New(&Config{Level: "info", Format: "console", Output: buf})
		require.NoError(t, err)

		l.Info("test message")
		output := buf.String()
		assert.Contains(t, output, "test message")
		assert.False(t, strings.HasPrefix(output, "{"))
	})

	t.Run("filters below level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := New(&Config{Level: "warn", Output: buf})
		require.NoError(t, err)

		l.Info("hidden")
		l.Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := New(&Config{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
