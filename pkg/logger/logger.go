// Package logger is a thin, named-logger facade over log/slog,
// matching the teacher's logging idiom: a small wrapper rather than a
// bespoke interface, so callers still get slog's structured
// key/value API and handler ecosystem for free.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	base    = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	current = base
)

// SetHandler replaces the process-wide base handler. Intended for
// tests that want an isolated, capturable logger.
func SetHandler(h slog.Handler) {
	mu.Lock()
	defer mu.Unlock()
	current = slog.New(h)
}

// SetLevel reparses the process-wide handler at the given slog level
// name (debug, info, warn, error; case-insensitive). An unrecognized
// name leaves the current level unchanged.
func SetLevel(name string) {
	var level slog.Level
	switch strings.ToLower(name) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return
	}
	SetHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Named returns a logger scoped to component, matching the teacher's
// logger.Named("agent") convention.
func Named(component string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current.With("component", component)
}

// L returns the current process-wide base logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
