package session

import (
	"fmt"

	internalstrings "github.com/amonks/fileagent/internal/strings"
)

// Store holds the active session, if any.
//
// Store does no locking. The workflow controller is its only writer and
// serializes access.
type Store struct {
	current    Session
	generation uint64
}

// NewStore returns a store with no active session.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current session and whether one is active.
func (s *Store) Get() (Session, bool) {
	if !s.current.Active() {
		return Session{Files: []string{}}, false
	}
	return s.current.clone(), true
}

// Snapshot returns a copy of the store contents.
func (s *Store) Snapshot() Snapshot {
	current, _ := s.Get()
	return Snapshot{Session: current, Generation: s.generation}
}

// Generation returns the mutation counter.
func (s *Store) Generation() uint64 {
	return s.generation
}

// SetFromUpload replaces the whole session with the result of an upload.
func (s *Store) SetFromUpload(id string, files []string, message string) error {
	if internalstrings.IsBlank(id) {
		return fmt.Errorf("%w: session id is required", ErrInvalidState)
	}
	s.current = Session{ID: id, Files: copyFiles(files), Message: message}
	s.generation++
	return nil
}

// ApplyInstructionResult replaces the listing and message of the active session.
func (s *Store) ApplyInstructionResult(files []string, message string) error {
	if !s.current.Active() {
		return fmt.Errorf("%w: no active session", ErrInvalidState)
	}
	s.current.Files = copyFiles(files)
	s.current.Message = message
	s.generation++
	return nil
}

// ApplyListing replaces the listing of the active session and keeps its message.
func (s *Store) ApplyListing(files []string) error {
	if !s.current.Active() {
		return fmt.Errorf("%w: no active session", ErrInvalidState)
	}
	s.current.Files = copyFiles(files)
	s.generation++
	return nil
}

// Clear drops the active session. Clearing an empty store is a no-op.
func (s *Store) Clear() {
	if !s.current.Active() {
		return
	}
	s.current = Session{}
	s.generation++
}
