package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation signals that no backend handler is mapped for an operation.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrBackendUnavailable signals a transport failure talking to the search backend.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrBackendStatus signals a non-2xx response from the search backend.
	ErrBackendStatus = errors.New("search backend error")
)

// BackendStatusError wraps ErrBackendStatus with the HTTP status the backend returned.
type BackendStatusError struct {
	Status int
	Body   string
}

func (e *BackendStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", ErrBackendStatus.Error(), e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrBackendStatus.Error(), e.Status, e.Body)
}

func (e *BackendStatusError) Unwrap() error { return ErrBackendStatus }

// NewBackendStatus creates a backend status error.
func NewBackendStatus(status int, body string) error {
	return &BackendStatusError{Status: status, Body: body}
}
