package connector

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/idfield"
	"github.com/kailas-cloud/multiid/internal/domain/idquery"
	"github.com/kailas-cloud/multiid/internal/domain/operation"
	"github.com/kailas-cloud/multiid/internal/domain/params"
	logpkg "github.com/kailas-cloud/multiid/internal/logger"
)

// QueryParam is the parameter that carries the identifier query.
const QueryParam = "q"

// Service looks records up by identifier across every configured identifier field.
// The field list and unique key are fixed at construction.
type Service struct {
	handlers  HandlerMap
	exec      Executor
	fields    idfield.List
	uniqueKey string
}

// New creates a connector. idFields is the raw comma-separated identifier field setting.
func New(handlers HandlerMap, exec Executor, idFields string) *Service {
	return &Service{
		handlers:  handlers,
		exec:      exec,
		fields:    idfield.Parse(idFields).OrDefault(),
		uniqueKey: idfield.ResolveUniqueKey(idFields),
	}
}

// UniqueKey returns the canonical identifier field.
func (s *Service) UniqueKey() string { return s.uniqueKey }

// IDFields returns a copy of the identifier fields used in queries.
func (s *Service) IDFields() idfield.List { return s.fields.Clone() }

// Query builds the identifier query for id.
func (s *Service) Query(id string) idquery.Query {
	return idquery.Build(s.fields, id)
}

// Retrieve fetches the record whose identifier, in any configured field, equals id.
// p is mutated; a nil p is replaced by a fresh bag.
func (s *Service) Retrieve(ctx context.Context, id string, p *params.Bag) (domain.Result, error) {
	return s.run(ctx, operation.Retrieve, id, p)
}

// Similar finds records similar to the one identified by id.
// p is mutated; a nil p is replaced by a fresh bag.
func (s *Service) Similar(ctx context.Context, id string, p *params.Bag) (domain.Result, error) {
	return s.run(ctx, operation.Similar, id, p)
}

// run sets the identifier query and delegates. Collaborator errors are returned as-is.
func (s *Service) run(
	ctx context.Context, op operation.Operation, id string, p *params.Bag,
) (domain.Result, error) {
	q := s.Query(id)
	if p == nil {
		p = params.New()
	}
	p.Set(QueryParam, q.String())

	handler, err := s.handlers.Handler(op)
	if err != nil {
		return domain.Result{}, err
	}
	if err := s.handlers.Prepare(op, p); err != nil {
		return domain.Result{}, err
	}

	logpkg.FromContext(ctx).Debug("identifier query",
		zap.Stringer("operation", op),
		zap.String("handler", handler),
		zap.String("query", q.String()),
		zap.Strings("params", p.Keys()),
	)

	return s.exec.Execute(ctx, handler, p)
}
