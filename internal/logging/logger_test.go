package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFatal, "FATAL"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "text", Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, errors.New("boom"), "warn message", "path", "src/yml/ub/de.yml")
	logger.Error(ctx, nil, "error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "path=src/yml/ub/de.yml")
	assert.Contains(t, out, "error message")
}

func TestSlogLoggerJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("resolver").With("site", "ub").Info(context.Background(), "resolved", "language", "de")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "resolved", record["msg"])
	assert.Equal(t, "resolver", record["component"])
	assert.Equal(t, "ub", record["site"])
	assert.Equal(t, "de", record["language"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})
	_ = parent.With("child", true)

	parent.Info(context.Background(), "parent only")
	assert.NotContains(t, buf.String(), "child=true")
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()

	scoped := rec.WithComponent("templates").With("page", "ub/index.hbs")
	scoped.Warn(ctx, errors.New("missing"), "data file not found", "path", "src/yml/ub/en.yml")
	rec.Info(ctx, "done")

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, LevelWarn, entries[0].Level)
	assert.Equal(t, "templates", entries[0].Component)
	assert.Equal(t, "ub/index.hbs", entries[0].Fields["page"])
	assert.Equal(t, "src/yml/ub/en.yml", entries[0].Fields["path"])
	assert.EqualError(t, entries[0].Err, "missing")

	assert.Len(t, rec.EntriesAt(LevelWarn), 1)
	assert.Len(t, rec.EntriesAt(LevelError), 0)
}

func TestOperationTiming(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})
	ctx := context.Background()

	op := StartOperation(logger, "styles")
	d := op.End(ctx)
	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.True(t, strings.Contains(buf.String(), "operation=styles"))

	buf.Reset()
	StartOperation(logger, "scripts").EndWithError(ctx, errors.New("minify failed"))
	assert.Contains(t, buf.String(), "Operation failed")
	assert.Contains(t, buf.String(), "minify failed")
}

func TestStartOperationNilLogger(t *testing.T) {
	op := StartOperation(nil, "clean")
	assert.NotPanics(t, func() { op.End(context.Background()) })
}
