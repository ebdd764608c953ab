package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger builds a JSON CoreLogger writing into buf.
func captureLogger(buf *bytes.Buffer, level LogLevel) *CoreLogger {
	return NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf})
}

// lastEntry decodes the final JSON log line in buf.
func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{" Error ", LogLevelError},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestCoreLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf, LogLevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestCoreLogger_ContextualAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf, LogLevelDebug).
		WithComponent("provider").
		WithConversation("chat-1", "turn-9").
		WithContext("request_id", "r-7")

	logger.Info("hello", "extra", "value")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "provider", entry["component"])
	assert.Equal(t, "chat-1", entry["conversation_id"])
	assert.Equal(t, "turn-9", entry["turn_id"])
	assert.Equal(t, "r-7", entry["request_id"])
	assert.Equal(t, "value", entry["extra"])
}

func TestCoreLogger_CloningDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := captureLogger(&buf, LogLevelDebug)
	_ = parent.WithComponent("child").WithContext("k", "v")

	parent.Info("from parent")
	entry := lastEntry(t, &buf)
	_, hasComponent := entry["component"]
	assert.False(t, hasComponent)
	_, hasContext := entry["k"]
	assert.False(t, hasContext)
}

func TestWithHelpers_PlainLoggerPassesThrough(t *testing.T) {
	plain := NoOpLogger{}
	assert.Equal(t, Logger(plain), WithComponent(plain, "provider"))
	assert.Equal(t, Logger(plain), WithConversation(plain, "c", "t"))
}

func TestWithHelpers_CoreLoggerGetsScoped(t *testing.T) {
	var buf bytes.Buffer
	scoped := WithConversation(WithComponent(captureLogger(&buf, LogLevelDebug), "turn"), "chat-1", "turn-1")

	scoped.Info("scoped entry")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "turn", entry["component"])
	assert.Equal(t, "chat-1", entry["conversation_id"])
	assert.Equal(t, "turn-1", entry["turn_id"])
}

func TestLogGeneration(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf, LogLevelDebug)

	LogGeneration(logger, "ollama", "llama3.2", 1, 42*time.Millisecond, true, nil)
	entry := lastEntry(t, &buf)
	assert.Equal(t, "generation completed", entry["msg"])
	assert.Equal(t, "ollama", entry["provider"])
	assert.Equal(t, "llama3.2", entry["model"])
	assert.Equal(t, float64(1), entry["attempts"])
	assert.Equal(t, true, entry["success"])

	LogGeneration(logger, "ollama", "llama3.2", 3, time.Second, false, errors.New("deadline exceeded"))
	entry = lastEntry(t, &buf)
	assert.Equal(t, "generation failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "deadline exceeded")
}

func TestLogToolCall(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf, LogLevelDebug)

	LogToolCall(logger, "weather", 5*time.Millisecond, false, errors.New("upstream unavailable"))

	entry := lastEntry(t, &buf)
	assert.Equal(t, "tool execution failed", entry["msg"])
	assert.Equal(t, "weather", entry["tool"])
	assert.Equal(t, false, entry["success"])
}

func TestLogPluginLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf, LogLevelDebug)

	LogPluginLifecycle(logger, "weather", "initialize", true, nil)
	entry := lastEntry(t, &buf)
	assert.Equal(t, "plugin lifecycle transition", entry["msg"])
	assert.Equal(t, "weather", entry["plugin"])
	assert.Equal(t, "initialize", entry["transition"])

	LogPluginLifecycle(logger, "weather", "shutdown", false, errors.New("boom"))
	entry = lastEntry(t, &buf)
	assert.Equal(t, "plugin lifecycle transition failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
}
