// Package logging provides structured logging for the engine, adapted from
// the teacher pack's slog-handler-wrapping style: a thin Logger around a
// slog.Handler that carries scoped fields via With, plus a package-level
// default instance for call sites that don't carry one explicitly.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Logger wraps a slog.Handler with a fixed set of scoped fields.
type Logger struct {
	mu      sync.RWMutex
	handler slog.Handler
	fields  map[string]any
}

var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewLogger wraps h. A nil handler falls back to a JSON handler on stdout.
func NewLogger(h slog.Handler) *Logger {
	if h == nil {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{handler: h, fields: make(map[string]any)}
}

// With returns a new Logger with additional scoped fields, leaving the
// receiver unchanged.
func (l *Logger) With(kv ...any) *Logger {
	l.mu.RLock()
	fields := make(map[string]any, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	l.mu.RUnlock()

	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields[key] = kv[i+1]
	}
	return &Logger{handler: l.handler, fields: fields}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	l.mu.RLock()
	attrs := make([]slog.Attr, 0, len(l.fields)+len(args)/2)
	for k, v := range l.fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.mu.RUnlock()

	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)
	_ = l.handler.Handle(context.Background(), record)
}

// Default returns the package-level logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
