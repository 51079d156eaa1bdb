package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amonks/fileagent/agent"
	internalstrings "github.com/amonks/fileagent/internal/strings"
)

var (
	// ErrBusy indicates an operation was requested while another is in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrNoSession indicates an operation needs a loaded project.
	ErrNoSession = errors.New("no project loaded")
)

// BusyError reports the operation that blocked a new request.
type BusyError struct {
	Pending Operation
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%v: %s", ErrBusy, e.Pending)
}

func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}

// Describe converts an error from the controller into a presentable message.
func Describe(op Operation, err error) string {
	if err == nil {
		return ""
	}
	prefix := failurePrefix(op)

	var busyErr *BusyError
	var serviceErr *agent.ServiceError
	var transportErr *agent.TransportError
	switch {
	case errors.As(err, &busyErr):
		return fmt.Sprintf("Still %s; wait for it to finish.", busyErr.Pending)
	case errors.Is(err, ErrBusy):
		return "Another operation is still running."
	case errors.Is(err, ErrNoSession):
		return "Upload a project first."
	case errors.Is(err, agent.ErrValidation):
		return fmt.Sprintf("%s: %s.", prefix, validationReason(err))
	case agent.IsSessionNotFound(err) && op != OpUploading:
		return fmt.Sprintf("%s: the agent no longer has this session. Upload the project again.", prefix)
	case errors.As(err, &serviceErr):
		detail := internalstrings.FirstLine(serviceErr.Detail)
		if detail == "" {
			return fmt.Sprintf("%s: agent returned status %d.", prefix, serviceErr.StatusCode)
		}
		return fmt.Sprintf("%s: %s (status %d).", prefix, detail, serviceErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s: the agent did not respond in time.", prefix)
	case errors.As(err, &transportErr):
		return fmt.Sprintf("%s: could not reach the agent service.", prefix)
	default:
		return fmt.Sprintf("%s: %v", prefix, err)
	}
}

func failurePrefix(op Operation) string {
	switch op {
	case OpUploading:
		return "Upload failed"
	case OpSubmittingInstruction:
		return "Request failed"
	case OpDownloading:
		return "Download failed"
	case OpRefreshing:
		return "Refresh failed"
	default:
		return "Failed"
	}
}

func validationReason(err error) string {
	return strings.TrimPrefix(err.Error(), agent.ErrValidation.Error()+": ")
}
