// Package firmlog centralizes structured logging configuration for Firm's
// long-running agent processes (the executor and the registry), following
// knative-func's convention of one small package owning a cross-cutting
// concern (compare pkg/config.Global). Leaf packages that knative-func
// itself writes straight to stdout/stderr under a verbose flag (the
// channel layer, the runtime store) keep that simpler shape; everything
// that runs as a daemon instead uses this package.
package firmlog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	base *zap.Logger
)

// Configure installs the process-wide base logger. json controls encoding
// (JSON for production deployments, console for local development);
// level is one of zap's level strings ("debug", "info", "warn", "error").
func Configure(json bool, level string) error {
	mu.Lock()
	defer mu.Unlock()

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	base = l
	return nil
}

func ensure() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			// ensure() must never fail a caller; fall back to a no-op core
			// rather than panicking a process over a logging misconfiguration.
			base = zap.NewNop()
		} else {
			base = l
		}
	}
	return base
}

// For returns a named, sugared logger for the given component ("executor",
// "registry", "runtimestore", ...).
func For(component string) *zap.SugaredLogger {
	return ensure().Named(component).Sugar()
}

// Sync flushes any buffered log entries. Callers should defer this at
// process shutdown.
func Sync() {
	mu.Lock()
	l := base
	mu.Unlock()
	if l != nil {
		_ = l.Sync()
	}
}
