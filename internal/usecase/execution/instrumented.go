package execution

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
	"github.com/kailas-cloud/multiid/internal/metrics"
)

// InstrumentedExecutor records backend request metrics and logs failures.
// Errors and results pass through untouched.
type InstrumentedExecutor struct {
	inner  Executor
	logger *zap.Logger
}

// NewInstrumentedExecutor wraps an executor with observability.
func NewInstrumentedExecutor(inner Executor, logger *zap.Logger) *InstrumentedExecutor {
	return &InstrumentedExecutor{inner: inner, logger: logger}
}

// Execute delegates to the inner executor and records the outcome.
func (e *InstrumentedExecutor) Execute(
	ctx context.Context, handler string, p *params.Bag,
) (domain.Result, error) {
	start := time.Now()

	result, err := e.inner.Execute(ctx, handler, p)

	duration := time.Since(start)
	metrics.BackendRequestDuration.WithLabelValues(handler).Observe(duration.Seconds())

	if err != nil {
		errType := classify(err)
		metrics.BackendRequestsTotal.WithLabelValues(handler, "error").Inc()
		metrics.BackendErrorsTotal.WithLabelValues(handler, errType).Inc()
		e.logger.Error("Backend request failed",
			zap.String("handler", handler),
			zap.String("error_type", errType),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return result, err
	}

	metrics.BackendRequestsTotal.WithLabelValues(handler, "success").Inc()
	e.logger.Debug("Backend request completed",
		zap.String("handler", handler),
		zap.Duration("duration", duration),
		zap.Int("response_bytes", len(result.Body)),
	)

	return result, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrBackendStatus):
		return "status"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
