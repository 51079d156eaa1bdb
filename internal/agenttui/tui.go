// Package agenttui is the interactive terminal front end for a workflow
// controller.
package agenttui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amonks/fileagent/internal/age"
	internalstrings "github.com/amonks/fileagent/internal/strings"
	"github.com/amonks/fileagent/session"
	"github.com/amonks/fileagent/workflow"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the part of *workflow.Controller the UI drives.
type Controller interface {
	Snapshot() session.Snapshot
	State() workflow.State
	Pending() workflow.Operation
	StartUpload(name string, archive []byte) error
	StartInstruction(text string) error
	StartDownload() error
	StartRefresh() error
	Reset()
	Subscribe(fn func(workflow.Event)) (unsubscribe func())
}

// Options configures Run.
type Options struct {
	// Archive pre-fills the archive path input.
	Archive string
	// DownloadDir receives downloaded archives.
	DownloadDir string
}

const eventBuffer = 64

type focusPane int

const (
	focusInput focusPane = iota
	focusFiles
	focusMessage
)

type statusLevel int

const (
	statusNone statusLevel = iota
	statusInfo
	statusError
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalReset
)

type confirmModal struct {
	kind        modalKind
	message     string
	confirmText string
	cancelText  string
	selected    int
}

type model struct {
	ctx         context.Context
	controller  Controller
	events      <-chan workflow.Event
	downloadDir string
	readFile    func(string) ([]byte, error)
	writeFile   func(string, []byte, os.FileMode) error

	width       int
	height      int
	focus       focusPane
	files       list.Model
	message     messageModel
	archive     textinput.Model
	instruction textarea.Model
	spinner     spinner.Model
	modal       confirmModal
	status      string
	statusLevel statusLevel

	state        workflow.State
	pending      workflow.Operation
	pendingSince time.Time
	now          func() time.Time
	snapshot     session.Snapshot
}

// Run shows the UI until the user quits.
func Run(ctx context.Context, controller Controller, opts Options) error {
	if controller == nil {
		return fmt.Errorf("workflow controller is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	events := make(chan workflow.Event, eventBuffer)
	unsubscribe := controller.Subscribe(func(event workflow.Event) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	m := newModel(ctx, controller, events, opts)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newModel(ctx context.Context, controller Controller, events <-chan workflow.Event, opts Options) model {
	archive := textinput.New()
	archive.Prompt = "> "
	archive.Placeholder = "path/to/project.zip"
	archive.SetValue(opts.Archive)

	instruction := textarea.New()
	instruction.ShowLineNumbers = false
	instruction.Prompt = "> "
	instruction.Placeholder = "Describe the change, e.g. delete a.txt"
	instruction.CharLimit = 4000
	instruction.SetHeight(3)
	instruction.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")

	downloadDir := opts.DownloadDir
	if internalstrings.IsBlank(downloadDir) {
		downloadDir = "."
	}

	m := model{
		ctx:         ctx,
		controller:  controller,
		events:      events,
		downloadDir: downloadDir,
		readFile:    os.ReadFile,
		writeFile:   os.WriteFile,
		now:         time.Now,
		focus:       focusInput,
		files:       newFileList(),
		message:     newMessageModel(),
		archive:     archive,
		instruction: instruction,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Line)),
		modal:       confirmModal{kind: modalNone},
	}
	m.syncFromController()
	m.focusInput()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForEventCmd(), m.spinner.Tick, textinput.Blink)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case eventMsg:
		return m.handleEvent(msg.event)
	case archiveSavedMsg:
		m.handleArchiveSaved(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.modal.kind != modalNone {
		return m.updateModal(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		updated, cmd, handled := m.handleKey(key)
		if handled {
			return updated, cmd
		}
		m = updated
	}

	return m.updateFocused(msg)
}

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading fileagent..."
	}
	contentHeight := m.contentHeight()
	leftWidth, rightWidth := splitWidths(m.width)

	filesPane := m.renderPane(m.filesView(), leftWidth, contentHeight, m.focus == focusFiles)
	messagePane := m.renderPane(m.message.View(), rightWidth, contentHeight, m.focus == focusMessage)
	content := lipgloss.JoinHorizontal(lipgloss.Top, filesPane, messagePane)
	input := m.renderPane(m.inputView(), m.width, inputHeight, m.focus == focusInput)

	view := strings.Join([]string{m.renderTitle(), m.renderHelpLine(), content, input, m.renderStatusLine()}, "\n")
	if m.modal.kind != modalNone {
		view = m.renderModalOverlay(view)
	}
	return view
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return m, tea.Quit, true
	case "tab":
		return m.cycleFocus(1), nil, true
	case "shift+tab", "backtab":
		return m.cycleFocus(-1), nil, true
	case "ctrl+d":
		return m.startDownload(), nil, true
	case "ctrl+r":
		return m.startRefresh(), nil, true
	case "ctrl+x":
		return m.promptReset(), nil, true
	case "f1":
		return m.openHelp(), nil, true
	}

	if m.focus == focusInput {
		if key == "enter" {
			updated, cmd := m.submitInput()
			return updated, cmd, true
		}
		if key == "esc" {
			return m.cycleFocus(1), nil, true
		}
		return m, nil, false
	}

	switch key {
	case "q":
		return m, tea.Quit, true
	case "?":
		return m.openHelp(), nil, true
	case "d":
		return m.startDownload(), nil, true
	case "r":
		return m.startRefresh(), nil, true
	case "x":
		return m.promptReset(), nil, true
	case "i", "esc":
		return m.setFocus(focusInput), nil, true
	}

	if m.focus == focusFiles {
		switch key {
		case "up", "k":
			return m.moveFileSelection(-1), nil, true
		case "down", "j":
			return m.moveFileSelection(1), nil, true
		case "home", "g":
			return m.moveFileSelection(-len(m.files.Items())), nil, true
		case "end", "G":
			return m.moveFileSelection(len(m.files.Items())), nil, true
		}
	}
	return m, nil, false
}

func (m model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusInput:
		if m.state == workflow.NoSession {
			m.archive, cmd = m.archive.Update(msg)
		} else {
			m.instruction, cmd = m.instruction.Update(msg)
		}
	case focusMessage:
		m.message, cmd = m.message.Update(msg)
	}
	return m, cmd
}

func (m model) submitInput() (model, tea.Cmd) {
	if m.state == workflow.NoSession {
		return m.startUpload(), nil
	}
	return m.startInstruction(), nil
}

func (m model) startUpload() model {
	path := expandHome(internalstrings.TrimSpace(m.archive.Value()))
	if path == "" {
		m.setStatus("Enter the path of a project archive.", statusError)
		return m
	}
	if m.pending != workflow.OpNone {
		m.reportStartError(workflow.OpUploading, &workflow.BusyError{Pending: m.pending})
		return m
	}
	data, err := m.readFile(path)
	if err != nil {
		m.setStatus(fmt.Sprintf("Cannot read %s: %v", path, err), statusError)
		return m
	}
	if err := m.controller.StartUpload(filepath.Base(path), data); err != nil {
		m.reportStartError(workflow.OpUploading, err)
	}
	return m
}

func (m model) startInstruction() model {
	text := m.instruction.Value()
	if err := m.controller.StartInstruction(text); err != nil {
		m.reportStartError(workflow.OpSubmittingInstruction, err)
		return m
	}
	m.instruction.Reset()
	return m
}

func (m model) startDownload() model {
	if err := m.controller.StartDownload(); err != nil {
		m.reportStartError(workflow.OpDownloading, err)
	}
	return m
}

func (m model) startRefresh() model {
	if err := m.controller.StartRefresh(); err != nil {
		m.reportStartError(workflow.OpRefreshing, err)
	}
	return m
}

func (m *model) reportStartError(op workflow.Operation, err error) {
	if err == nil {
		return
	}
	m.setStatus(workflow.Describe(op, err), statusError)
}

func (m model) promptReset() model {
	if m.state == workflow.NoSession {
		m.setStatus("No session to reset.", statusInfo)
		return m
	}
	message := "Discard the current session?"
	if m.pending != workflow.OpNone {
		message = fmt.Sprintf("Discard the current session? The pending %s result will be ignored.", m.pending)
	}
	m.modal = confirmModal{
		kind:        modalReset,
		message:     message,
		confirmText: "Reset",
		cancelText:  "Cancel",
		selected:    1,
	}
	return m
}

func (m model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.modal.kind == modalHelp {
		switch key.String() {
		case "?", "esc", "f1", "q":
			m.modal = confirmModal{kind: modalNone}
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}
	switch key.String() {
	case "left", "right", "tab", "shift+tab", "backtab", "h", "l":
		if m.modal.selected == 0 {
			m.modal.selected = 1
		} else {
			m.modal.selected = 0
		}
		return m, nil
	case "enter":
		return m.resolveModal(m.modal.selected == 0)
	case "y":
		return m.resolveModal(true)
	case "esc", "n":
		return m.resolveModal(false)
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m model) resolveModal(confirm bool) (tea.Model, tea.Cmd) {
	kind := m.modal.kind
	m.modal = confirmModal{kind: modalNone}
	if !confirm {
		return m, nil
	}
	if kind == modalReset {
		m.controller.Reset()
		m.instruction.Reset()
		m = m.setFocus(focusInput)
	}
	return m, nil
}

func (m model) openHelp() model {
	m.modal = confirmModal{kind: modalHelp}
	return m
}

func (m model) cycleFocus(delta int) model {
	panes := []focusPane{focusInput, focusFiles, focusMessage}
	index := 0
	for i, pane := range panes {
		if pane == m.focus {
			index = i
		}
	}
	next := (index + delta + len(panes)) % len(panes)
	return m.setFocus(panes[next])
}

func (m model) setFocus(target focusPane) model {
	m.focus = target
	if target == focusInput {
		m.focusInput()
	} else {
		m.archive.Blur()
		m.instruction.Blur()
	}
	return m
}

func (m *model) focusInput() {
	if m.focus != focusInput {
		return
	}
	if m.state == workflow.NoSession {
		m.instruction.Blur()
		m.archive.Focus()
		return
	}
	m.archive.Blur()
	m.instruction.Focus()
}

func (m model) moveFileSelection(delta int) model {
	items := m.files.Items()
	if len(items) == 0 {
		return m
	}
	next := min(max(m.files.Index()+delta, 0), len(items)-1)
	m.files.Select(next)
	return m
}

// syncFromController copies the controller's state into the model.
func (m *model) syncFromController() {
	m.applySnapshot(m.controller.State(), m.controller.Pending(), m.controller.Snapshot())
}

func (m *model) applySnapshot(state workflow.State, pending workflow.Operation, snapshot session.Snapshot) {
	previous := m.state
	m.state = state
	m.pending = pending
	if snapshot.Generation != m.snapshot.Generation || len(m.files.Items()) != len(snapshot.Files) {
		selected := m.files.Index()
		m.files.SetItems(fileItems(snapshot.Files))
		if len(snapshot.Files) > 0 {
			m.files.Select(min(max(selected, 0), len(snapshot.Files)-1))
		}
	}
	m.snapshot = snapshot
	m.message.SetMessage(snapshot.Message)
	if (previous == workflow.NoSession) != (state == workflow.NoSession) {
		m.focusInput()
	}
}

func (m model) handleEvent(event workflow.Event) (tea.Model, tea.Cmd) {
	m.applySnapshot(event.State, pendingFor(event), event.Snapshot)

	var cmds []tea.Cmd
	switch event.Kind {
	case workflow.EventStarted:
		m.pendingSince = m.now()
		m.setStatus("", statusNone)
	case workflow.EventFailed:
		m.setStatus(event.Notice, statusError)
	default:
		m.setStatus(event.Notice, statusInfo)
	}
	if event.Kind == workflow.EventCompleted && event.Archive != nil {
		cmds = append(cmds, m.saveArchiveCmd(*event.Archive))
	}
	cmds = append(cmds, m.waitForEventCmd())
	return m, tea.Batch(cmds...)
}

func pendingFor(event workflow.Event) workflow.Operation {
	if event.Kind == workflow.EventStarted {
		return event.Operation
	}
	return workflow.OpNone
}

func (m *model) handleArchiveSaved(msg archiveSavedMsg) {
	if msg.err != nil {
		m.setStatus(fmt.Sprintf("Save failed: %v", msg.err), statusError)
		return
	}
	m.setStatus(fmt.Sprintf("Saved %s", msg.path), statusInfo)
}

func (m *model) setStatus(text string, level statusLevel) {
	m.status = text
	m.statusLevel = level
}

const inputHeight = 3

func (m model) contentHeight() int {
	// title, help, status lines and the bordered input pane.
	return max(m.height-3-(inputHeight+2)-2, 1)
}

func (m *model) resize() {
	contentHeight := m.contentHeight()
	leftWidth, rightWidth := splitWidths(m.width)
	m.files.SetSize(max(leftWidth-4, 1), max(contentHeight, 1))
	m.message.SetSize(max(rightWidth-4, 1), max(contentHeight, 1))
	inputWidth := max(m.width-4, 10)
	m.archive.Width = inputWidth - 3
	m.instruction.SetWidth(inputWidth)
	m.instruction.SetHeight(inputHeight - 1)
}

func splitWidths(width int) (int, int) {
	left := width / 3
	if left < 30 {
		left = 30
	}
	if left > width-20 {
		left = width / 2
	}
	right := width - left
	if right < 20 {
		right = 20
		left = width - right
	}
	return left, right
}

func (m model) filesView() string {
	if m.state == workflow.NoSession {
		return valueMuted.Render("No project uploaded")
	}
	if len(m.files.Items()) == 0 {
		return labelStyle.Render("Files") + "\n\n" + valueMuted.Render("(empty)")
	}
	return m.files.View()
}

func (m model) inputView() string {
	if m.state == workflow.NoSession {
		return labelStyle.Render("Archive") + "\n" + m.archive.View()
	}
	return labelStyle.Render("Instruction") + "\n" + m.instruction.View()
}

func (m model) renderTitle() string {
	title := titleStyle.Render("fileagent")
	sessionText := "no session"
	if m.snapshot.Active() {
		sessionText = "session " + m.snapshot.ID
	}
	info := valueMuted.Render(fmt.Sprintf("%s | %s", sessionText, m.stateText()))
	hint := valueMuted.Render("F1 help")
	spacerWidth := max(m.width-lipgloss.Width(title)-lipgloss.Width(info)-lipgloss.Width(hint)-2, 1)
	return titleBarStyle.Width(m.width).Render(title + " " + info + strings.Repeat(" ", spacerWidth) + hint)
}

func (m model) stateText() string {
	if m.state == workflow.Busy {
		return fmt.Sprintf("busy: %s", m.pending)
	}
	return m.state.String()
}

func (m model) renderPane(content string, width, height int, focused bool) string {
	style := paneStyle
	if focused {
		style = paneActiveStyle
	}
	return style.Width(max(width-2, 0)).Height(max(height, 0)).Render(content)
}

func (m model) renderStatusLine() string {
	if m.state == workflow.Busy {
		text := fmt.Sprintf("%s %s...", m.spinner.View(), capitalize(m.pending.String()))
		if elapsed, ok := age.Elapsed(m.pendingSince, m.now()); ok {
			text += " " + age.FormatShort(elapsed)
		}
		return statusBusyStyle.Render(text)
	}
	text := m.status
	if internalstrings.IsBlank(text) {
		return ""
	}
	style := valueMuted
	if m.statusLevel == statusError {
		style = statusErrorStyle
	} else if m.statusLevel == statusInfo {
		style = statusSuccessStyle
	}
	return style.Render(truncateText(text, m.width))
}

func (m model) renderHelpLine() string {
	text := internalstrings.TrimSpace(m.helpSummary())
	if text == "" {
		return ""
	}
	return helpBarStyle.Width(m.width).Render(truncateText(text, m.width))
}

func (m model) helpSummary() string {
	if m.focus == focusInput {
		if m.state == workflow.NoSession {
			return "Keys: enter upload | tab focus | F1 help | ctrl+c quit"
		}
		return "Keys: enter send | alt+enter newline | ctrl+d download | ctrl+r refresh | ctrl+x reset | tab focus | F1 help"
	}
	return "Keys: up/down move | d download | r refresh | x reset | i input | tab focus | ? help | q quit"
}

func (m model) renderModalOverlay(content string) string {
	if m.modal.kind == modalNone {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.modalView())
}

func (m model) modalView() string {
	if m.modal.kind == modalHelp {
		return modalStyle.Render(m.helpContent())
	}
	options := []string{m.modal.confirmText, m.modal.cancelText}
	buttons := make([]string, 0, len(options))
	for i, option := range options {
		style := valueMuted
		if i == m.modal.selected {
			style = selectedBorder
		}
		buttons = append(buttons, style.Render("["+option+"]"))
	}
	content := strings.Join([]string{m.modal.message, "", strings.Join(buttons, " ")}, "\n")
	return modalStyle.Render(content)
}

func (m model) helpContent() string {
	sections := []string{
		labelStyle.Render("Global"),
		"ctrl+c: quit",
		"tab/shift+tab: move focus",
		"ctrl+d: download project",
		"ctrl+r: refresh file list",
		"ctrl+x: reset session",
		"",
		labelStyle.Render("Input"),
		"enter: upload archive or send instruction",
		"alt+enter: newline in instruction",
		"",
		labelStyle.Render("Files and reply"),
		"up/down or j/k: move or scroll",
		"d / r / x: download / refresh / reset",
		"i or esc: back to input",
		"",
		labelStyle.Render("Help"),
		"press ? or esc to close",
	}
	return strings.Join(sections, "\n")
}

func capitalize(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
