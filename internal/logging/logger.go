// Package logging provides the operational zap logger and the structured
// audit trail for the interpretation pipeline. Operational logs are for
// humans debugging the system; the audit trail is the reviewable record of
// every safety-relevant decision (override triggers, sanitizations, errors).
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Level is a zap level name ("debug", "info",
// "warn", "error"); format is "console" or "json". Empty values keep the
// production defaults.
func New(level, format string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if format != "json" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("unknown log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// OrNop returns logger, or a no-op logger when nil, so library packages can
// take an optional *zap.Logger without nil checks at every call site.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
