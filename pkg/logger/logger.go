// Package logger provides the module's structured logging surface: a small
// set of call-site helpers (Info, Error, InfoJ, ErrorJ) backed by zap.
package logger

import (
	"os"
	"sort"

	"go.uber.org/zap"
)

var base *zap.Logger

func init() {
	base = newBase()
}

func newBase() *zap.Logger {
	var l *zap.Logger
	var err error
	if os.Getenv("AIRLOCK_ENV") == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		l = zap.NewNop()
	}
	return l
}

// Reconfigure swaps the base logger. Used by tests that want to capture
// output or run with a nop logger.
func Reconfigure(l *zap.Logger) {
	if l == nil {
		return
	}
	base = l
}

// Info logs a plain message at info level.
func Info(msg string) { base.Info(msg) }

// Error logs a plain message at error level.
func Error(msg string) { base.Error(msg) }

// InfoJ logs a tagged message with structured fields at info level.
func InfoJ(tag string, fields map[string]any) {
	base.Info(tag, toZapFields(fields)...)
}

// ErrorJ logs a tagged message with structured fields at error level.
func ErrorJ(tag string, fields map[string]any) {
	base.Error(tag, toZapFields(fields)...)
}

// Sync flushes buffered log entries. Callers should defer it at process exit.
func Sync() error { return base.Sync() }

// toZapFields flattens a map into zap.Field, sorted by key so that repeated
// calls with the same fields produce deterministic output for tests.
func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
