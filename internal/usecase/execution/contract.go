package execution

import (
	"context"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

// Executor sends a prepared request to the search backend.
type Executor interface {
	Execute(ctx context.Context, handler string, p *params.Bag) (domain.Result, error)
}
