package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehaomiao/slim/internal/config"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestNewLogger_FileAndStdout(t *testing.T) {
	t.Cleanup(func() { _ = CloseLogFile() })
	logFile := filepath.Join(t.TempDir(), "nested", "app.log")
	var stdout bytes.Buffer

	logger, err := NewLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "both",
		FilePath: logFile,
	}, &stdout)
	require.NoError(t, err)

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entry := decodeLine(t, strings.TrimSpace(string(content)))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, strings.TrimSpace(string(content)), strings.TrimSpace(stdout.String()))
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "info", wantInfo: true},
		{level: "error"},
		{level: "bogus", wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(config.LoggingConfig{Level: tt.level, Format: "json", Output: "stdout"}, &buf)
			require.NoError(t, err)

			ctx := context.Background()
			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.wantInfo, logger.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"}, &buf)
	require.NoError(t, err)

	logger.Info("plain", "k", "v")
	assert.Contains(t, buf.String(), "msg=plain")
	assert.Contains(t, buf.String(), "k=v")
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, &buf)
	require.NoError(t, err)

	t.Run("explicit trace id", func(t *testing.T) {
		buf.Reset()
		ctx := WithTraceID(context.Background(), "trace-123")
		logger.With("component", "test").InfoContext(ctx, "with trace")

		entry := decodeLine(t, strings.TrimSpace(buf.String()))
		assert.Equal(t, "trace-123", entry["trace_id"])
		assert.Equal(t, "test", entry["component"])
	})

	t.Run("chi request id", func(t *testing.T) {
		buf.Reset()
		ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
		logger.InfoContext(ctx, "with request id")

		entry := decodeLine(t, strings.TrimSpace(buf.String()))
		assert.Equal(t, "req-1", entry["trace_id"])
	})

	t.Run("no trace id", func(t *testing.T) {
		buf.Reset()
		logger.InfoContext(context.Background(), "bare")

		entry := decodeLine(t, strings.TrimSpace(buf.String()))
		assert.NotContains(t, entry, "trace_id")
	})
}

func TestInitializeLogger_Once(t *testing.T) {
	previous := slog.Default()
	ResetLoggerForTesting()
	t.Cleanup(func() {
		ResetLoggerForTesting()
		slog.SetDefault(previous)
	})

	cfg := config.Default().Logging
	first, err := InitializeLogger(cfg)
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "stdout"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, GetLogger())
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)

	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
	assert.Empty(t, GetTraceID(context.Background()))
}
