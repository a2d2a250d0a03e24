// Package telemetry is a thin level-tagged wrapper over the standard
// library logger, matching the plain log.Printf idiom used throughout the
// storage layer this module builds on.
package telemetry

import (
	"fmt"
	"log"
	"os"
)

// Logger tags every line with a component name, so output from different
// components can be told apart without a structured-logging dependency
// this module has no other use for. pkg/sync ("sync") is its only user.
type Logger struct {
	component string
	std       *log.Logger
}

// New returns a Logger for the named component, writing to stderr with
// the standard library's default timestamp prefix.
func New(component string) *Logger {
	return &Logger{
		component: component,
		std:       log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) logf(level, format string, args ...any) {
	l.std.Printf("[%s] %s: %s", level, l.component, fmt.Sprintf(format, args...))
}

// Infof logs a routine informational line.
func (l *Logger) Infof(format string, args ...any) { l.logf("INFO", format, args...) }

// Warnf logs a condition worth an operator's attention but not failing
// the caller.
func (l *Logger) Warnf(format string, args ...any) { l.logf("WARN", format, args...) }

// Errorf logs a failure. It does not itself wrap or return an error —
// callers still propagate the error value separately.
func (l *Logger) Errorf(format string, args ...any) { l.logf("ERROR", format, args...) }
