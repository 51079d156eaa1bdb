package session

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewStoreHasNoSession(t *testing.T) {
	store := NewStore()

	current, ok := store.Get()
	if ok {
		t.Fatalf("expected no active session, got %+v", current)
	}
	if current.Files == nil || len(current.Files) != 0 {
		t.Fatalf("expected empty non-nil files, got %#v", current.Files)
	}
	if store.Generation() != 0 {
		t.Fatalf("expected generation 0, got %d", store.Generation())
	}
}

func TestSetFromUploadRejectsBlankID(t *testing.T) {
	store := NewStore()

	for _, id := range []string{"", "   "} {
		err := store.SetFromUpload(id, []string{"a.txt"}, "ok")
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState for %q, got %v", id, err)
		}
	}
	if _, ok := store.Get(); ok {
		t.Fatalf("expected store to stay empty")
	}
}

func TestSetFromUploadOverwritesWholeSession(t *testing.T) {
	store := NewStore()

	if err := store.SetFromUpload("s1", []string{"a.txt", "b.txt"}, "first"); err != nil {
		t.Fatalf("set first: %v", err)
	}
	if err := store.SetFromUpload("s2", nil, ""); err != nil {
		t.Fatalf("set second: %v", err)
	}

	current, ok := store.Get()
	if !ok {
		t.Fatalf("expected active session")
	}
	if current.ID != "s2" || current.Message != "" || len(current.Files) != 0 {
		t.Fatalf("expected replaced session, got %+v", current)
	}
}

func TestApplyInstructionResultRequiresSession(t *testing.T) {
	store := NewStore()

	err := store.ApplyInstructionResult([]string{"a.txt"}, "done")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if store.Generation() != 0 {
		t.Fatalf("expected failed mutation to leave generation alone")
	}
}

func TestApplyInstructionResultReplacesListing(t *testing.T) {
	store := NewStore()
	if err := store.SetFromUpload("s1", []string{"a.txt", "b.txt"}, "ok"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.ApplyInstructionResult([]string{"c.txt"}, "renamed"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	current, _ := store.Get()
	if !reflect.DeepEqual(current.Files, []string{"c.txt"}) {
		t.Fatalf("expected listing to be replaced, got %v", current.Files)
	}
	if current.Message != "renamed" || current.ID != "s1" {
		t.Fatalf("unexpected session %+v", current)
	}
}

func TestApplyListingKeepsMessage(t *testing.T) {
	store := NewStore()
	if err := store.SetFromUpload("s1", []string{"a.txt"}, "ok"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.ApplyListing([]string{}); err != nil {
		t.Fatalf("apply listing: %v", err)
	}

	current, _ := store.Get()
	if len(current.Files) != 0 || current.Message != "ok" {
		t.Fatalf("unexpected session %+v", current)
	}
}

func TestStoreCopiesSlices(t *testing.T) {
	store := NewStore()
	files := []string{"a.txt"}
	if err := store.SetFromUpload("s1", files, "ok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	files[0] = "mutated"

	current, _ := store.Get()
	current.Files[0] = "also mutated"

	again, _ := store.Get()
	if again.Files[0] != "a.txt" {
		t.Fatalf("expected store to own its listing, got %v", again.Files)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	store := NewStore()
	store.Clear()
	if store.Generation() != 0 {
		t.Fatalf("expected clearing empty store to be a no-op")
	}

	if err := store.SetFromUpload("s1", []string{"a.txt"}, "ok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	store.Clear()
	generation := store.Generation()
	store.Clear()

	if store.Generation() != generation {
		t.Fatalf("expected second clear to be a no-op")
	}
	snapshot := store.Snapshot()
	if snapshot.Active() || len(snapshot.Files) != 0 || snapshot.Message != "" {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
}
