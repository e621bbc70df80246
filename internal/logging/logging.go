// Package logging builds the zap loggers used by the CLI and the pipeline.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger at level ("debug", "info", "warn", "error") writing
// either colored console lines or JSON. Empty values mean info/console.
func New(level, format string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("logging: level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = false
	case FormatJSON:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel

	return cfg.Build()
}

// ForRun scopes base to one pipeline run.
func ForRun(base *zap.Logger, runID, job string) *zap.Logger {
	return base.With(zap.String("run_id", runID), zap.String("job", job))
}
