package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edstats/schema-chat/internal/config"
)

func newBufferLogger(level LogLevel, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &Logger{
		level:  level,
		format: format,
		output: buf,
		fields: make(map[string]interface{}),
	}

	return logger, buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(WarnLevel, "text")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", nil)

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestLogger_JSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "json")

	logger.WithField("table", "school_main").Warnf("could not process table")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "could not process table", entry.Message)
	assert.Equal(t, "school_main", entry.Fields["table"])
}

func TestLogger_WithError(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "text")

	logger.WithError(errors.New("boom")).Info("something happened")

	assert.Contains(t, buf.String(), "error=boom")
}

func TestNewLogger_InvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "syslog",
	})
	require.Error(t, err)
}
