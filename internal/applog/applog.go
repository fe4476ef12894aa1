// Package applog wires a single zap.Logger through every SDK component, the
// way the rest of the retrieved pack threads a logger down from its client
// constructor instead of reaching for a package-level singleton (SPEC.md §9
// "no ambient singletons").
package applog

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the small set of levels the SDK's InitOptions expose;
// callers pass a string ("debug", "info", "warn", "error") so the CLI and
// TUI can wire it straight from a flag.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// New builds a zap.Logger suitable for library use: no caller-owned global,
// console-encoded for CLI readability, silent by default at debug level.
func New(level Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	return cfg.Build()
}

// Noop returns a logger that discards everything; Named returns it when
// given a nil base logger, so components never have to nil-check.
func Noop() *zap.Logger {
	return zap.NewNop()
}

func parseLevel(level Level) zapcore.Level {
	switch Level(strings.ToLower(string(level))) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Named returns a child logger scoped to one SDK component, mirroring how
// each component in the communication core gets its own named sub-logger
// (connectionfsm, lantransport, registry, orchestrator, ...).
func Named(base *zap.Logger, name string) *zap.Logger {
	if base == nil {
		return Noop()
	}
	return base.Named(name)
}
