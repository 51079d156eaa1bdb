// Package session holds the single project session bound to this client.
package session

// Session captures one server-side project workspace.
type Session struct {
	// ID is the opaque identifier issued by the agent service.
	// Empty means no session is active.
	ID string `json:"session_id"`
	// Files is the listing reported by the most recent successful operation.
	Files []string `json:"files"`
	// Message is the status text from the most recent successful operation.
	Message string `json:"message"`
}

// Active reports whether the session has an identifier.
func (s Session) Active() bool {
	return s.ID != ""
}

// Snapshot is a read-only copy of the store contents.
type Snapshot struct {
	Session
	// Generation increases every time the store is mutated.
	Generation uint64 `json:"generation"`
}

func (s Session) clone() Session {
	return Session{ID: s.ID, Files: copyFiles(s.Files), Message: s.Message}
}

func copyFiles(files []string) []string {
	copied := make([]string, len(files))
	copy(copied, files)
	return copied
}
