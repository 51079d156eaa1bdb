package agenttui

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amonks/fileagent/agent"
	"github.com/amonks/fileagent/internal/stubagent"
	"github.com/amonks/fileagent/internal/testsupport"
	"github.com/amonks/fileagent/workflow"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	screencapWidth  = 100
	screencapHeight = 26
)

type harness struct {
	controller *workflow.Controller
	events     chan workflow.Event
	stub       *stubagent.Server
}

func newHarness(t *testing.T) (*harness, model) {
	t.Helper()
	stub := stubagent.New(stubagent.Options{})
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	controller, err := workflow.New(agent.NewClient(server.URL), workflow.Options{})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	events := make(chan workflow.Event, eventBuffer)
	unsubscribe := controller.Subscribe(func(event workflow.Event) {
		events <- event
	})
	t.Cleanup(func() {
		controller.Wait()
		unsubscribe()
	})

	h := &harness{controller: controller, events: events, stub: stub}
	m := newModel(context.Background(), controller, events, Options{DownloadDir: t.TempDir()})
	m.width = screencapWidth
	m.height = screencapHeight
	m.resize()
	return h, m
}

// settle waits for the pending call and feeds every queued event to m.
func (h *harness) settle(t *testing.T, m model) model {
	t.Helper()
	h.controller.Wait()
	for {
		select {
		case event := <-h.events:
			updated, _ := m.Update(eventMsg{event: event})
			m = updated.(model)
		default:
			return m
		}
	}
}

func press(t *testing.T, m model, msg tea.KeyMsg) model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(model)
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func runes(value string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(value)}
}

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.zip")
	if err := os.WriteFile(path, testsupport.ZipArchive(t, files), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func uploaded(t *testing.T, h *harness, m model, files map[string]string) model {
	t.Helper()
	m.archive.SetValue(writeArchive(t, files))
	m = press(t, m, enter())
	m = h.settle(t, m)
	if m.state != workflow.Idle {
		t.Fatalf("expected idle after upload, got %s (status %q)", m.state, m.status)
	}
	return m
}

func useASCIIRenderer(t *testing.T) {
	originalProfile := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(originalProfile)
	})
}

func assertFits(t *testing.T, view string) {
	t.Helper()
	for i, line := range strings.Split(view, "\n") {
		if width := lipgloss.Width(line); width > screencapWidth {
			t.Fatalf("line %d is %d columns wide: %q", i, width, line)
		}
	}
}

func TestScreencapNoSession(t *testing.T) {
	useASCIIRenderer(t)
	_, m := newHarness(t)

	view := m.View()
	assertFits(t, view)
	for _, want := range []string{"fileagent", "no session | no-session", "No project uploaded", "Archive", "enter upload"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestScreencapAfterUpload(t *testing.T) {
	useASCIIRenderer(t)
	h, m := newHarness(t)
	m = uploaded(t, h, m, map[string]string{"a.txt": "a", "src/main.go": "package main"})

	view := m.View()
	assertFits(t, view)
	for _, want := range []string{"session " + m.snapshot.ID + " | idle", "a.txt", "src/main.go", "Instruction", "Project uploaded successfully!"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestLoadingViewBeforeSize(t *testing.T) {
	_, m := newHarness(t)
	m.width = 0
	if view := m.View(); view != "Loading fileagent..." {
		t.Fatalf("unexpected view %q", view)
	}
}

func TestUploadMissingFileReportsError(t *testing.T) {
	h, m := newHarness(t)
	m.archive.SetValue(filepath.Join(t.TempDir(), "missing.zip"))

	m = press(t, m, enter())
	m = h.settle(t, m)

	if m.state != workflow.NoSession {
		t.Fatalf("expected no-session, got %s", m.state)
	}
	if m.statusLevel != statusError || !strings.Contains(m.status, "Cannot read") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestInvalidArchiveSurfacesServiceDetail(t *testing.T) {
	h, m := newHarness(t)
	path := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m.archive.SetValue(path)

	m = press(t, m, enter())
	m = h.settle(t, m)

	want := "Upload failed: Uploaded file is not a valid ZIP file. (status 400)."
	if m.status != want || m.statusLevel != statusError {
		t.Fatalf("expected status %q, got %q", want, m.status)
	}
}

func TestInstructionInputClearedAfterSubmit(t *testing.T) {
	h, m := newHarness(t)
	m = uploaded(t, h, m, map[string]string{"a.txt": "a"})

	m.instruction.SetValue("delete a.txt")
	m = press(t, m, enter())
	if value := m.instruction.Value(); value != "" {
		t.Fatalf("expected instruction cleared on submit, got %q", value)
	}
	m = h.settle(t, m)

	if len(m.files.Items()) != 0 {
		t.Fatalf("expected empty listing, got %d items", len(m.files.Items()))
	}
	if !strings.Contains(m.message.message, "deleted successfully") {
		t.Fatalf("unexpected message %q", m.message.message)
	}
	if !strings.Contains(m.filesView(), "(empty)") {
		t.Fatalf("expected empty marker, got %q", m.filesView())
	}
}

func TestBlankInstructionIsRejectedLocally(t *testing.T) {
	h, m := newHarness(t)
	m = uploaded(t, h, m, map[string]string{"a.txt": "a"})
	before := m.snapshot

	m.instruction.SetValue("   ")
	m = press(t, m, enter())
	m = h.settle(t, m)

	if m.statusLevel != statusError || m.status != "Request failed: instruction is required." {
		t.Fatalf("unexpected status %q", m.status)
	}
	if m.snapshot.Generation != before.Generation || m.state != workflow.Idle {
		t.Fatalf("expected session untouched")
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	h, m := newHarness(t)
	m = uploaded(t, h, m, map[string]string{"a.txt": "a"})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if m.modal.kind != modalReset {
		t.Fatalf("expected reset modal")
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.modal.kind != modalNone || h.controller.State() != workflow.Idle {
		t.Fatalf("expected cancel to keep the session")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	m = press(t, m, runes("y"))
	m = h.settle(t, m)

	if m.state != workflow.NoSession || h.controller.State() != workflow.NoSession {
		t.Fatalf("expected no-session after reset, got %s", m.state)
	}
	if m.status != "Session cleared." {
		t.Fatalf("unexpected status %q", m.status)
	}
	if !strings.Contains(m.inputView(), "Archive") {
		t.Fatalf("expected archive input after reset")
	}
}

func TestResetWithoutSessionSkipsModal(t *testing.T) {
	_, m := newHarness(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if m.modal.kind != modalNone {
		t.Fatalf("expected no modal without a session")
	}
}

func TestDownloadSavesArchive(t *testing.T) {
	h, m := newHarness(t)
	m = uploaded(t, h, m, map[string]string{"a.txt": "a", "b.txt": "b"})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	h.controller.Wait()

	var archive *agent.Archive
	for len(h.events) > 0 {
		event := <-h.events
		if event.Kind == workflow.EventCompleted && event.Archive != nil {
			archive = event.Archive
		}
		updated, _ := m.Update(eventMsg{event: event})
		m = updated.(model)
	}
	if archive == nil {
		t.Fatalf("expected a completed download event (status %q)", m.status)
	}

	msg := m.saveArchiveCmd(*archive)()
	updated, _ := m.Update(msg)
	m = updated.(model)

	path := filepath.Join(m.downloadDir, "project_"+m.snapshot.ID+".zip")
	if m.status != "Saved "+path {
		t.Fatalf("unexpected status %q", m.status)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved archive: %v", err)
	}
	entries := testsupport.ZipEntries(t, data)
	if strings.Join(entries, ",") != "a.txt,b.txt" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestSessionExpiryReturnsToArchiveInput(t *testing.T) {
	h, m := newHarness(t)
	m = uploaded(t, h, m, map[string]string{"a.txt": "a"})

	h.stub.Expire(m.snapshot.ID)
	m.instruction.SetValue("delete a.txt")
	m = press(t, m, enter())
	m = h.settle(t, m)

	if m.state != workflow.NoSession {
		t.Fatalf("expected no-session, got %s", m.state)
	}
	if !strings.Contains(m.status, "the agent no longer has this session") {
		t.Fatalf("unexpected status %q", m.status)
	}
	if !m.archive.Focused() {
		t.Fatalf("expected archive input to take focus")
	}
}

func TestFocusCyclesAndFileNavigation(t *testing.T) {
	h, m := newHarness(t)
	m = uploaded(t, h, m, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusFiles {
		t.Fatalf("expected files focus, got %d", m.focus)
	}
	m = press(t, m, runes("j"))
	m = press(t, m, runes("j"))
	m = press(t, m, runes("j"))
	if m.files.Index() != 2 {
		t.Fatalf("expected selection clamped to last file, got %d", m.files.Index())
	}
	m = press(t, m, runes("g"))
	if m.files.Index() != 0 {
		t.Fatalf("expected selection at top, got %d", m.files.Index())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusMessage {
		t.Fatalf("expected message focus, got %d", m.focus)
	}
	m = press(t, m, runes("i"))
	if m.focus != focusInput || !m.instruction.Focused() {
		t.Fatalf("expected instruction input focus")
	}
}

func TestHelpModalToggles(t *testing.T) {
	useASCIIRenderer(t)
	_, m := newHarness(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	if m.modal.kind != modalHelp {
		t.Fatalf("expected help modal")
	}
	if view := m.View(); !strings.Contains(view, "ctrl+x: reset session") {
		t.Fatalf("expected help content:\n%s", view)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.modal.kind != modalNone {
		t.Fatalf("expected help closed")
	}
}

func TestSaveArchiveRejectsNamelessArchive(t *testing.T) {
	if _, err := saveArchive(t.TempDir(), agent.Archive{Data: []byte("x")}, os.WriteFile); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBusyStatusShowsElapsed(t *testing.T) {
	useASCIIRenderer(t)
	_, m := newHarness(t)

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	updated, _ := m.Update(eventMsg{event: workflow.Event{
		Kind:      workflow.EventStarted,
		Operation: workflow.OpUploading,
		State:     workflow.Busy,
	}})
	m = updated.(model)

	clock = clock.Add(3 * time.Second)
	if line := m.renderStatusLine(); !strings.Contains(line, "Uploading... 3s") {
		t.Fatalf("expected elapsed time in status line, got %q", line)
	}
}
