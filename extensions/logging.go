package extensions

import (
	"context"
	"time"

	"go.uber.org/zap"

	lazyinit "github.com/N3BCKN/lazy-init"
)

// LoggingExtension logs attribute computations and resets with structured
// fields: attribute name, instance id, duration, and outcome.
type LoggingExtension struct {
	lazyinit.BaseExtension
	logger *zap.Logger
}

// NewLoggingExtension creates a logging extension around the given logger.
// A nil logger falls back to zap.NewNop.
func NewLoggingExtension(logger *zap.Logger) *LoggingExtension {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingExtension{
		BaseExtension: lazyinit.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *lazyinit.Operation) (any, error) {
	start := time.Now()
	result, err := next()
	duration := time.Since(start)

	fields := []zap.Field{
		zap.String("attribute", op.Attribute),
		zap.String("instance", op.Instance.ID()),
		zap.Duration("duration", duration),
	}

	if err != nil {
		e.logger.Warn(string(op.Kind)+" failed", append(fields, zap.Error(err))...)
	} else {
		e.logger.Debug(string(op.Kind)+" completed", fields...)
	}

	return result, err
}
