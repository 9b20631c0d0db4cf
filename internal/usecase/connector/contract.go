package connector

import (
	"context"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/operation"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

// HandlerMap resolves backend handlers and prepares request parameters per operation.
type HandlerMap interface {
	Handler(op operation.Operation) (string, error)
	Prepare(op operation.Operation, p *params.Bag) error
}

// Executor sends a prepared request to the search backend.
type Executor interface {
	Execute(ctx context.Context, handler string, p *params.Bag) (domain.Result, error)
}
