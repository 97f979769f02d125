// Package logging builds the zap loggers used across cropscore.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level and encoding
type Options struct {
	// Verbose enables debug level
	Verbose bool

	// Format is "console" or "json" (defaults to console)
	Format string

	// OutputPaths defaults to stderr so report output on stdout stays clean
	OutputPaths []string
}

// New builds a production-style logger from opts
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	if opts.Verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	switch strings.ToLower(opts.Format) {
	case "", "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		config.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		config.OutputPaths = opts.OutputPaths
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
