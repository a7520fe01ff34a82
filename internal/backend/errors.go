package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the backend has no record for the requested id.
	ErrNotFound = errors.New("backend: not found")

	// ErrRejected is returned when the backend declines an unlock or lock.
	ErrRejected = errors.New("backend: request rejected")

	// ErrUnavailable is returned when the backend cannot be reached or a read
	// returns a non-2xx status other than 404.
	ErrUnavailable = errors.New("backend: unavailable")

	// ErrUnexpectedPayload is returned when a response body cannot be decoded.
	ErrUnexpectedPayload = errors.New("backend: unexpected payload")
)

// APIError describes a non-2xx response to an unlock or lock.
type APIError struct {
	Operation  string
	StatusCode int
	// Reason is the backend's redirect code, e.g. "low-battery" or "user-occupied".
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("backend %s: status %d: %s (%s)", e.Operation, e.StatusCode, e.Message, e.Reason)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Is makes every APIError match ErrRejected.
func (e *APIError) Is(target error) bool {
	return target == ErrRejected
}
