package agenttui

import (
	"github.com/amonks/fileagent/internal/markdown"
	internalstrings "github.com/amonks/fileagent/internal/strings"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// messageModel shows the agent's latest reply.
type messageModel struct {
	message  string
	viewport viewport.Model
}

func newMessageModel() messageModel {
	return messageModel{viewport: viewport.New(0, 0)}
}

func (model *messageModel) SetSize(width, height int) {
	model.viewport.Width = max(width, 0)
	model.viewport.Height = max(height, 0)
	model.refresh()
}

func (model *messageModel) SetMessage(message string) {
	if message == model.message {
		return
	}
	model.message = message
	model.refresh()
	model.viewport.GotoTop()
}

func (model *messageModel) refresh() {
	content := ""
	if !internalstrings.IsBlank(model.message) {
		content = markdown.RenderString(model.viewport.Width, model.message)
	}
	model.viewport.SetContent(content)
}

func (model messageModel) Update(msg tea.Msg) (messageModel, tea.Cmd) {
	var cmd tea.Cmd
	model.viewport, cmd = model.viewport.Update(msg)
	return model, cmd
}

func (model messageModel) View() string {
	if internalstrings.IsBlank(model.message) {
		return valueMuted.Render("No reply yet")
	}
	return model.viewport.View()
}
