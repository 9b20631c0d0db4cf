package multiid

import "github.com/kailas-cloud/multiid/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUnknownOperation   = domain.ErrUnknownOperation
	ErrBackendUnavailable = domain.ErrBackendUnavailable
	ErrBackendStatus      = domain.ErrBackendStatus
)

// BackendStatusError carries the status and message of a rejected backend request.
// Use errors.As() to extract it.
type BackendStatusError = domain.BackendStatusError
