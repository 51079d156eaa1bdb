package workflow

import (
	"github.com/amonks/fileagent/agent"
	"github.com/amonks/fileagent/session"
)

// EventKind identifies why an event was published.
type EventKind int

const (
	// EventStarted is published when an operation is dispatched.
	EventStarted EventKind = iota
	// EventCompleted is published when an operation succeeds.
	EventCompleted
	// EventFailed is published when an operation fails.
	EventFailed
	// EventReset is published when the session is cleared by the user.
	EventReset
)

func (kind EventKind) String() string {
	switch kind {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event describes a state change. Events are delivered in the order the
// controller applied the changes.
type Event struct {
	Kind      EventKind
	Operation Operation
	State     State
	Snapshot  session.Snapshot
	// Notice is a presentable one-line summary.
	Notice string
	// Err is set for EventFailed.
	Err error
	// Archive is set when a download completes.
	Archive *agent.Archive
}
