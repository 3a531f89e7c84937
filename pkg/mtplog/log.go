// Package mtplog provides the component-scoped structured logger shared
// across this module, following the teacher's pkg/log.go: a single
// package-level *slog.Logger guarded by a mutex, with Component values
// attached to every record so a reader can filter by subsystem.
package mtplog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers used across this module.
const (
	ComponentUSB     Component = "usb"
	ComponentMTP     Component = "mtp"
	ComponentSession Component = "session"
	ComponentFS      Component = "fs"
	ComponentCLI     Component = "cli"
)

// Format specifies the output format for logging.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	// Default is the default logger used across the module.
	Default *slog.Logger

	level = new(slog.LevelVar)
	mu    sync.RWMutex
)

func init() {
	level.Set(slog.LevelWarn)
	Default = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetLevel sets the minimum log level for all module logging. A logger
// installed with SetLogger before the call is gated by this level as well,
// whatever level its own handler was built with; a logger installed after
// the call keeps its handler's level.
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level.Set(l)
	if _, ok := Default.Handler().(levelGate); !ok {
		Default = slog.New(levelGate{Default.Handler()})
	}
}

// levelGate drops records below the module level before they reach the
// wrapped handler.
type levelGate struct{ slog.Handler }

func (g levelGate) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= level.Level() && g.Handler.Enabled(ctx, l)
}

// Level returns the current minimum log level.
func Level() slog.Level {
	mu.RLock()
	defer mu.RUnlock()
	return level.Level()
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	Default = logger
}

// SetFormat reconfigures the default logger to write to os.Stderr in the
// given format at the current level.
func SetFormat(format Format) {
	mu.Lock()
	defer mu.Unlock()
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		Default = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	} else {
		Default = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
}

// New creates a new text logger writing to w.
func New(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: level}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Debug logs a debug message tagged with component.
func Debug(component Component, msg string, args ...any) {
	logAt(slog.LevelDebug, component, msg, args...)
}

// Info logs an info message tagged with component.
func Info(component Component, msg string, args ...any) {
	logAt(slog.LevelInfo, component, msg, args...)
}

// Warn logs a warning message tagged with component.
func Warn(component Component, msg string, args ...any) {
	logAt(slog.LevelWarn, component, msg, args...)
}

// Error logs an error message tagged with component.
func Error(component Component, msg string, args ...any) {
	logAt(slog.LevelError, component, msg, args...)
}

func logAt(level slog.Level, component Component, msg string, args ...any) {
	mu.RLock()
	logger := Default
	mu.RUnlock()
	logger.Log(context.Background(), level, msg, append([]any{"component", string(component)}, args...)...)
}
