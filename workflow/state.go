package workflow

// State is the workflow state tag shown to the presentation layer.
type State int

const (
	// NoSession means no project is loaded.
	NoSession State = iota
	// Idle means a project is loaded and nothing is in flight.
	Idle
	// Busy means one operation is in flight.
	Busy
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no-session"
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Operation is the kind of the pending network call.
type Operation int

const (
	// OpNone means nothing is pending.
	OpNone Operation = iota
	// OpUploading creates a session from an archive.
	OpUploading
	// OpSubmittingInstruction sends an instruction to the session.
	OpSubmittingInstruction
	// OpDownloading fetches the session archive.
	OpDownloading
	// OpRefreshing re-reads the session file listing.
	OpRefreshing
)

func (op Operation) String() string {
	switch op {
	case OpNone:
		return "none"
	case OpUploading:
		return "uploading"
	case OpSubmittingInstruction:
		return "submitting instruction"
	case OpDownloading:
		return "downloading"
	case OpRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

func stateFor(pending Operation, hasSession bool) State {
	if pending != OpNone {
		return Busy
	}
	if hasSession {
		return Idle
	}
	return NoSession
}
