package agenttui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/amonks/fileagent/agent"
	"github.com/amonks/fileagent/workflow"
	tea "github.com/charmbracelet/bubbletea"
)

type eventMsg struct {
	event workflow.Event
}

type archiveSavedMsg struct {
	path string
	err  error
}

func (m model) waitForEventCmd() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			return eventMsg{event: event}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m model) saveArchiveCmd(archive agent.Archive) tea.Cmd {
	dir := m.downloadDir
	writeFile := m.writeFile
	return func() tea.Msg {
		path, err := saveArchive(dir, archive, writeFile)
		return archiveSavedMsg{path: path, err: err}
	}
}

// saveArchive writes archive into dir under its own base name.
func saveArchive(dir string, archive agent.Archive, writeFile func(string, []byte, os.FileMode) error) (string, error) {
	name := filepath.Base(archive.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("archive has no file name")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := writeFile(path, archive.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
