// Package logging builds the zap loggers used across gomibako.
package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how much to log.
type Options struct {
	// File is the destination path. Empty means stderr.
	File string
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// Console selects the human-readable encoder instead of JSON.
	Console bool
}

// New builds a logger from opts. The TUI passes a file so log lines never
// land on the terminal it owns.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", opts.Level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	if opts.Console {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	out := "stderr"
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		out = opts.File
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{out}

	return cfg.Build()
}

// LogError logs err at error level. Nil errors and context cancellations are
// dropped.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if logger == nil || err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
