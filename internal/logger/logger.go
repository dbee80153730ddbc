// Package logger builds the zap logger shared by every component.
package logger

import (
	"go.uber.org/zap"
)

// Logger holds the process wide zap logger. Until Init succeeds it
// discards everything.
type Logger struct {
	Log *zap.Logger
}

func New() *Logger {
	return &Logger{
		Log: zap.NewNop(),
	}
}

// Init replaces the no-op logger with one writing at level. The
// development environment gets a human readable console encoder, every
// other environment gets JSON.
func (l *Logger) Init(level string, env string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	l.Log = zl.With(zap.String("env", env))
	return nil
}

// Sync flushes buffered entries. Errors from syncing stderr on some
// platforms are ignored.
func (l *Logger) Sync() {
	_ = l.Log.Sync()
}
