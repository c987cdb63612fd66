// Package telemetry provides structured logging and counters for the
// memory engine.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Logger wraps log/slog. The engine runs inside interactive chat
// sessions, so the default logger discards output; operators opt in
// with verbose mode (stderr) or WithFile (a log under the engine root).
type Logger struct {
	inner *slog.Logger
	level slog.Level
	mu    sync.Mutex
	term  io.Writer
	file  *os.File
}

// NewLogger creates a logger. Verbose mode logs at debug level to
// stderr; otherwise nothing reaches the terminal.
func NewLogger(verbose bool) *Logger {
	level := slog.LevelInfo
	term := io.Writer(io.Discard)
	if verbose {
		level = slog.LevelDebug
		term = os.Stderr
	}

	handler := slog.NewTextHandler(term, &slog.HandlerOptions{Level: level})
	return &Logger{
		inner: slog.New(handler),
		level: level,
		term:  term,
	}
}

// WithFile routes log output to the given file in addition to the
// terminal writer. At most one file is attached; a second call
// replaces the first.
func (l *Logger) WithFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if l.file != nil {
		l.file.Close()
	}
	l.file = file

	multi := io.MultiWriter(l.term, file)
	l.inner = slog.New(slog.NewTextHandler(multi, &slog.HandlerOptions{Level: l.level}))
	return nil
}

// WithFields returns a child logger carrying additional key-value
// fields on every record. The child shares the parent's writers.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	return &Logger{
		inner: l.inner.With(args...),
		level: l.level,
		term:  l.term,
		file:  l.file,
	}
}

// Close closes the attached log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Slog returns the underlying *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.inner
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.inner.Debug(msg, keyvals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.inner.Info(msg, keyvals...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.inner.Warn(msg, keyvals...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.inner.Error(msg, keyvals...)
}
