package session

import "errors"

var (
	// ErrInvalidState indicates a mutation that the current session state does not allow.
	ErrInvalidState = errors.New("invalid session state")
)
