// Package log provides structured logging for model lifecycle operations.
//
// It defines a minimal, slog-compatible Logger interface so the backend can
// be swapped (the default is slog with JSON output; a zerolog backend is also
// provided) while call sites stay stable. Attribute keys for common training
// fields live in attributes.go.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("linear.classifier").With(
//	    log.ModelNameKey, "SoftmaxClassifier",
//	)
//	logger.Info("epoch finished",
//	    log.EpochKey, 3,
//	    log.LossKey, 0.42,
//	)
package log

import (
	"context"
)

// Logger is a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs, as in slog. With returns a child
// logger carrying pre-populated fields, which is how per-model context
// (model name, instance id) is attached once instead of at every call site.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If an error value is passed with ErrAttr, backends may attach stack
	// trace information extracted from it.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip expensive field construction.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. It exists for dependency
// injection and for tests that need to capture output.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers created by this provider.
	SetLevel(level Level)
}
