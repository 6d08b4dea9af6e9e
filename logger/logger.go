// Package logger provides the logging abstraction used throughout go-trio.
//
// The protocol packages never log failures; errors are returned to the caller.
// They only emit Debug-level traces (raw frames, negotiation replies) through a
// Logger, so a CLI can turn on wire-level visibility without touching the core.
//
// Log Levels:
//
//   - DebugLevel:  Wire-level traces, disabled unless requested.
//   - InfoLevel:  General informational messages.
//   - WarnLevel:  Warnings about potential issues.
//   - ErrorLevel:  Errors that require attention.
//   - FatalLevel:  Critical errors that cause program termination.
package logger

import (
	"fmt"
	"strings"
)

// Level indicates the logging severity level.
type Level = int8

const (
	// DebugLevel logs are typically voluminous, and are usually disabled.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel
	// ErrorLevel logs are high-priority.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// Logger defines a common interface for logging.
type Logger interface {
	// Debug logs a message at DebugLevel.
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel, then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)
	// With creates a child logger and adds structured context to it.
	// Key-values added to the child don't affect the parent, and vice versa.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level for this logger.
	Level() Level
	// SetLevel sets the minimum enabled level for this logger.
	SetLevel(level Level)
}

// ParseLevel converts a level name such as "debug" or "WARN" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	}

	return InfoLevel, fmt.Errorf("logger: unknown level %q", s)
}
