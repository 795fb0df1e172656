package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely the console logs
type Options struct {
	ServiceName string
	Level       string
	// OutputPath is used instead of stderr when set. The terminal wizard owns the
	// screen, so interactive runs log to a file.
	OutputPath string
}

// NewLogger creates a new structured logger
func NewLogger(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": opts.ServiceName,
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	if opts.OutputPath != "" {
		config.OutputPaths = []string{opts.OutputPath}
		config.ErrorOutputPaths = []string{opts.OutputPath}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithCorrelationID returns a logger tagged with the resolution cycle's correlation id
func WithCorrelationID(logger *zap.Logger, correlationID string) *zap.Logger {
	return logger.With(zap.String("correlation_id", correlationID))
}
