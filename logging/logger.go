// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer CoreLogger with contextual cloning
// (component, conversation, turn) and package-level domain helpers for
// generation calls, tool dispatch and plugin lifecycle transitions.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string ("debug", "info", "warn", "error",
// case-insensitive) to a LogLevel. Unknown values fall back to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface used throughout the core.
// This allows users to provide their own logger implementation or use the
// built-in adapters. Args are slog-style alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// CoreLogger implements Logger over slog, attaching contextual attributes
// (component, conversation, turn, free-form context) to every entry. It is
// cheap to copy via the With* methods.
type CoreLogger struct {
	logger         *slog.Logger
	context        map[string]any
	component      string
	conversationID string
	turnID         string
}

// LoggerConfig configures construction of a CoreLogger.
type LoggerConfig struct {
	Level          LogLevel
	Format         string // json or text
	Output         io.Writer
	AddSource      bool
	Component      string
	ConversationID string
	TurnID         string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout}
}

// NewLogger builds a CoreLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *CoreLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &CoreLogger{
		logger:         slog.New(handler),
		context:        map[string]any{},
		component:      cfg.Component,
		conversationID: cfg.ConversationID,
		turnID:         cfg.TurnID,
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *CoreLogger) clone() *CoreLogger {
	nl := *l
	nl.context = map[string]any{}
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute attached to every log entry.
func (l *CoreLogger) WithContext(key string, value any) *CoreLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (provider, plugins, turn, etc.).
func (l *CoreLogger) WithComponent(c string) *CoreLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithConversation attaches conversation and turn identifiers.
func (l *CoreLogger) WithConversation(cid, tid string) *CoreLogger {
	nl := l.clone()
	nl.conversationID = cid
	nl.turnID = tid
	return nl
}

// contextArgs renders the attached context as slog key/value args, placed
// before the per-call args of each entry.
func (l *CoreLogger) contextArgs() []any {
	args := make([]any, 0, 2*(len(l.context)+3))
	if l.component != "" {
		args = append(args, "component", l.component)
	}
	if l.conversationID != "" {
		args = append(args, "conversation_id", l.conversationID)
	}
	if l.turnID != "" {
		args = append(args, "turn_id", l.turnID)
	}
	for k, v := range l.context {
		args = append(args, k, v)
	}
	return args
}

func (l *CoreLogger) log(level slog.Level, msg string, args ...any) {
	all := append(l.contextArgs(), args...)
	l.logger.Log(context.Background(), level, msg, all...)
}

// Debug logs at debug level.
func (l *CoreLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *CoreLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *CoreLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *CoreLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

var _ Logger = (*CoreLogger)(nil)

// WithComponent scopes l to a logical component when the logger supports
// contextual cloning; any other Logger is returned unchanged.
func WithComponent(l Logger, component string) Logger {
	if cl, ok := l.(*CoreLogger); ok {
		return cl.WithComponent(component)
	}
	return l
}

// WithConversation scopes l to a conversation and turn when the logger
// supports contextual cloning; any other Logger is returned unchanged.
func WithConversation(l Logger, conversationID, turnID string) Logger {
	if cl, ok := l.(*CoreLogger); ok {
		return cl.WithConversation(conversationID, turnID)
	}
	return l
}

// LogGeneration records model call latency, attempt count and outcome.
func LogGeneration(l Logger, provider, model string, attempts int, dur time.Duration, success bool, err error) {
	args := []any{
		"provider", provider,
		"model", model,
		"attempts", attempts,
		"duration", dur,
		"success", success,
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if success {
		l.Debug("generation completed", args...)
	} else {
		l.Error("generation failed", args...)
	}
}

// LogToolCall records execution details for a dispatched tool call.
func LogToolCall(l Logger, tool string, dur time.Duration, success bool, err error) {
	args := []any{"tool", tool, "duration", dur, "success", success}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if success {
		l.Debug("tool execution completed", args...)
	} else {
		l.Warn("tool execution failed", args...)
	}
}

// LogPluginLifecycle records a plugin lifecycle transition (enable, disable,
// initialize, shutdown).
func LogPluginLifecycle(l Logger, plugin, transition string, success bool, err error) {
	args := []any{"plugin", plugin, "transition", transition, "success", success}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if success {
		l.Info("plugin lifecycle transition", args...)
	} else {
		l.Error("plugin lifecycle transition failed", args...)
	}
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
