// Package logging provides structured logging for the bidding agent.
// It wraps Go's log/slog package to provide JSON-formatted logs with
// persistent context attributes and a runtime-adjustable level.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the name of the log file created inside the log directory.
const LogFileName = "bidagent.log"

// Logger provides structured logging with context propagation.
// It is safe for concurrent use. Child loggers share the level and sink
// of their parent.
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	sink   *sink
	attrs  []slog.Attr
}

// sink owns the underlying writer so that Close on any child logger
// closes the shared file exactly once.
type sink struct {
	mu     sync.Mutex
	writer *RotatingWriter
}

// NewLogger creates a new Logger that writes JSON-formatted logs to
// {logDir}/bidagent.log, or to stderr when logDir is empty.
//
// The level parameter controls which messages are logged:
//   - DEBUG: All messages
//   - INFO: Info, Warn, and Error messages
//   - WARN: Warn and Error messages
//   - ERROR: Only Error messages
func NewLogger(logDir string, level string) (*Logger, error) {
	return NewLoggerWithRotation(logDir, level, RotationConfig{})
}

// NewLoggerWithRotation is NewLogger with size-based rotation of the log
// file. Rotation is ignored when logging to stderr.
func NewLoggerWithRotation(logDir string, level string, rotation RotationConfig) (*Logger, error) {
	var writer io.Writer = os.Stderr
	s := &sink{}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rw, err := NewRotatingWriter(filepath.Join(logDir, LogFileName), rotation)
		if err != nil {
			return nil, err
		}
		s.writer = rw
		writer = rw
	}

	return newLogger(writer, level, s), nil
}

// NewWriterLogger creates a Logger writing JSON lines to w. Used by tests
// and by callers that manage their own sink.
func NewWriterLogger(w io.Writer, level string) *Logger {
	return newLogger(w, level, &sink{})
}

func newLogger(w io.Writer, level string, s *sink) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(parseLevel(level))
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})
	return &Logger{
		logger: slog.New(handler),
		level:  lv,
		sink:   s,
		attrs:  make([]slog.Attr, 0),
	}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level for this logger and every logger
// derived from the same root.
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// Level returns the current level as one of the Level* constants.
func (l *Logger) Level() string {
	switch l.level.Level() {
	case slog.LevelDebug:
		return LevelDebug
	case slog.LevelWarn:
		return LevelWarn
	case slog.LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// WithComponent returns a child Logger tagged with the component name
// (e.g. "monitor", "feed", "checkpoint").
func (l *Logger) WithComponent(component string) *Logger {
	return l.withAttr(slog.String("component", component))
}

// WithTask returns a child Logger tagged with a task ID.
func (l *Logger) WithTask(taskID string) *Logger {
	return l.withAttr(slog.String("task_id", taskID))
}

// With returns a new Logger with arbitrary key-value attributes.
// Keys and values are provided as alternating arguments.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	newAttrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	newAttrs = append(newAttrs, l.attrs...)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		newAttrs = append(newAttrs, slog.Any(key, args[i+1]))
	}

	return &Logger{logger: l.logger, level: l.level, sink: l.sink, attrs: newAttrs}
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	newAttrs := make([]slog.Attr, len(l.attrs)+1)
	copy(newAttrs, l.attrs)
	newAttrs[len(l.attrs)] = attr
	return &Logger{logger: l.logger, level: l.level, sink: l.sink, attrs: newAttrs}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	l.logger.Log(context.Background(), level, msg, allArgs...)
}

// Close flushes and closes the log file.
// If the logger writes to stderr or a caller-owned writer, this is a no-op.
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.writer == nil {
		return nil
	}
	err := l.sink.writer.Close()
	l.sink.writer = nil
	return err
}

// NopLogger returns a Logger that discards all log output.
func NopLogger() *Logger {
	return NewWriterLogger(io.Discard, LevelError)
}

// ParseLevel normalizes a user-provided level string.
// Returns LevelInfo if the level string is not recognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return strings.ToUpper(level)
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
