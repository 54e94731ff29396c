// Package log provides testing utilities for structured logging.
//
// TestLogger captures log records in memory so tests can assert on what a
// lifecycle operation logged without touching process-wide logger state.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TestLogger is a Logger implementation for tests. All records are written as
// JSON lines into an in-memory buffer for later inspection.
type TestLogger struct {
	buffer *bytes.Buffer
	level  Level
	fields map[string]interface{}
}

// NewTestLogger creates a TestLogger capturing records at or above level.
// It returns the logger and the buffer holding its output.
//
// Example:
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	logger.Info("checkpoint saved", log.CheckpointStepKey, 12)
//	if !strings.Contains(buf.String(), "checkpoint saved") { ... }
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{
		buffer: buffer,
		level:  level,
		fields: make(map[string]interface{}),
	}, buffer
}

// Debug implements Logger.Debug.
func (t *TestLogger) Debug(msg string, fields ...any) {
	if t.level <= LevelDebug {
		t.writeLog("DEBUG", msg, fields...)
	}
}

// Info implements Logger.Info.
func (t *TestLogger) Info(msg string, fields ...any) {
	if t.level <= LevelInfo {
		t.writeLog("INFO", msg, fields...)
	}
}

// Warn implements Logger.Warn.
func (t *TestLogger) Warn(msg string, fields ...any) {
	if t.level <= LevelWarn {
		t.writeLog("WARN", msg, fields...)
	}
}

// Error implements Logger.Error.
func (t *TestLogger) Error(msg string, fields ...any) {
	if t.level <= LevelError {
		t.writeLog("ERROR", msg, fields...)
	}
}

// With implements Logger.With.
func (t *TestLogger) With(fields ...any) Logger {
	child := &TestLogger{
		buffer: t.buffer,
		level:  t.level,
		fields: make(map[string]interface{}, len(t.fields)+len(fields)/2),
	}
	for k, v := range t.fields {
		child.fields[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			child.fields[key] = fields[i+1]
		}
	}
	return child
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= t.level
}

func (t *TestLogger) writeLog(level, msg string, fields ...any) {
	record := map[string]interface{}{
		"level":   level,
		"message": msg,
	}
	for k, v := range t.fields {
		record[k] = normalizeValue(v)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			record[key] = normalizeValue(fields[i+1])
		}
	}
	line, err := json.Marshal(record)
	if err != nil {
		fmt.Fprintf(t.buffer, `{"level":%q,"message":%q}`+"\n", level, msg)
		return
	}
	t.buffer.Write(line)
	t.buffer.WriteByte('\n')
}

func normalizeValue(v interface{}) interface{} {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// Lines returns the captured records split into individual JSON lines.
func (t *TestLogger) Lines() []string {
	out := strings.TrimSpace(t.buffer.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Contains reports whether any captured record contains substr.
func (t *TestLogger) Contains(substr string) bool {
	return strings.Contains(t.buffer.String(), substr)
}

// Reset discards all captured records.
func (t *TestLogger) Reset() {
	t.buffer.Reset()
}
