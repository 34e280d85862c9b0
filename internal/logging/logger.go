// Package logging provides the debug logger shared by maestro components.
// Loggers are passed explicitly; there is no package-level instance.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// sink is the shared destination behind a family of component loggers.
type sink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// Logger writes timestamped debug lines. A nil *Logger is a valid no-op.
type Logger struct {
	out       *sink
	component string
}

// New creates a logger writing to w. A nil writer yields a no-op logger.
func New(w io.Writer) *Logger {
	if w == nil {
		return Nop()
	}
	return &Logger{out: &sink{w: w}}
}

// NewFile creates a logger appending to the file at path.
// If the path is empty, returns a no-op logger.
// Creates parent directories if they don't exist.
func NewFile(path string) (*Logger, error) {
	if path == "" {
		return Nop(), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Logger{out: &sink{w: f, closer: f}}
	l.Log("=== maestro debug log started at %s ===", time.Now().Format(time.RFC3339))
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{}
}

// With returns a logger sharing the same destination that prefixes
// every line with the component name.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	name := component
	if l.component != "" {
		name = l.component + "." + component
	}
	return &Logger{out: l.out, component: name}
}

// Enabled returns true if lines written to the logger go anywhere.
func (l *Logger) Enabled() bool {
	return l != nil && l.out != nil
}

// Log writes a timestamped message.
// If the logger is nil or has no destination, this is a no-op.
func (l *Logger) Log(format string, args ...interface{}) {
	if !l.Enabled() {
		return
	}

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05.000")

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.component != "" {
		fmt.Fprintf(l.out.w, "[%s] [%s] %s\n", timestamp, l.component, msg)
		return
	}
	fmt.Fprintf(l.out.w, "[%s] %s\n", timestamp, msg)
}

// Func adapts the logger to a printf-style callback.
func (l *Logger) Func() func(format string, args ...interface{}) {
	return l.Log
}

// Close closes the underlying file, if any.
// Safe to call on nil logger or logger without file.
func (l *Logger) Close() error {
	if !l.Enabled() || l.out.closer == nil {
		return nil
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.out.closer.Close()
}
