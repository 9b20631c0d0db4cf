package execution

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

// ThrottledExecutor caps the request rate sent to the backend.
type ThrottledExecutor struct {
	inner   Executor
	limiter *rate.Limiter
}

// NewThrottledExecutor allows rps requests per second with the given burst.
// A non-positive rps disables throttling and returns inner as is.
func NewThrottledExecutor(inner Executor, rps float64, burst int) Executor {
	if rps <= 0 {
		return inner
	}
	if burst <= 0 {
		burst = 1
	}
	return &ThrottledExecutor{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Execute waits for a token, then delegates. A request whose context ends
// while waiting fails with the context's error.
func (e *ThrottledExecutor) Execute(ctx context.Context, handler string, p *params.Bag) (domain.Result, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Result{}, ctxErr
		}
		// Wait fails early when the deadline cannot fit the next token.
		return domain.Result{}, context.DeadlineExceeded
	}
	return e.inner.Execute(ctx, handler, p)
}
