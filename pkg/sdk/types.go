package multiid

import (
	"github.com/kailas-cloud/multiid/internal/backend/handlermap"
	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/operation"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

// Params is the ordered multi-value parameter set sent with one request.
// Not safe for concurrent use.
type Params = params.Bag

// NewParams returns an empty parameter set.
func NewParams() *Params { return params.New() }

// Result is a raw backend response.
type Result = domain.Result

// Operation names a connector operation.
type Operation = operation.Operation

// Operations.
const (
	OpRetrieve = operation.Retrieve
	OpSimilar  = operation.Similar
)

// Handler describes one backend handler path and its parameter policy.
type Handler = handlermap.Handler
