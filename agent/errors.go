package agent

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation indicates a request rejected before reaching the network.
	ErrValidation = errors.New("invalid request")
)

// TransportError reports a failed exchange: the service was unreachable,
// the call timed out, or the response could not be decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError reports a non-success status returned by the agent service.
type ServiceError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: agent returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: agent returned %d: %s", e.Op, e.StatusCode, e.Detail)
}

// IsSessionNotFound reports whether err means the service no longer knows
// the session.
func IsSessionNotFound(err error) bool {
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		return false
	}
	return serviceErr.StatusCode == http.StatusNotFound || serviceErr.StatusCode == http.StatusGone
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
