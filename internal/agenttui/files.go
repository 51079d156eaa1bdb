package agenttui

import (
	"fmt"
	"io"
	"path"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type fileItem struct {
	path string
}

func (item fileItem) FilterValue() string {
	return item.path
}

type fileItemDelegate struct {
	normalStyle   lipgloss.Style
	dirStyle      lipgloss.Style
	selectedStyle lipgloss.Style
}

func newFileItemDelegate() fileItemDelegate {
	return fileItemDelegate{
		normalStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		dirStyle:      valueMuted,
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")),
	}
}

func (d fileItemDelegate) Height() int                             { return 1 }
func (d fileItemDelegate) Spacing() int                            { return 0 }
func (d fileItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d fileItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(fileItem)
	if !ok {
		return
	}
	if index == m.Index() {
		fmt.Fprint(w, d.selectedStyle.Render(truncateText(item.path, m.Width())))
		return
	}
	fmt.Fprint(w, d.renderPath(item.path, m.Width()))
}

// renderPath mutes the directory part so file names stand out.
func (d fileItemDelegate) renderPath(value string, width int) string {
	value = truncateText(value, width)
	dir, name := path.Split(value)
	if dir == "" {
		return d.normalStyle.Render(name)
	}
	return d.dirStyle.Render(dir) + d.normalStyle.Render(name)
}

func newFileList() list.Model {
	files := list.New(nil, newFileItemDelegate(), 0, 0)
	files.Title = "Files"
	files.SetShowStatusBar(false)
	files.SetFilteringEnabled(false)
	files.SetShowHelp(false)
	files.SetShowPagination(false)
	files.KeyMap.Quit.SetEnabled(false)
	return files
}

func fileItems(paths []string) []list.Item {
	items := make([]list.Item, 0, len(paths))
	for _, p := range paths {
		items = append(items, fileItem{path: p})
	}
	return items
}

func truncateText(value string, width int) string {
	if width <= 0 {
		return value
	}
	return runewidth.Truncate(value, width, "...")
}
