package editor

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// InstructionData is shown as comments while composing an instruction.
type InstructionData struct {
	// Archive is the uploaded archive name.
	Archive string
	// Files is the current project listing.
	Files []string
	// Text pre-fills the instruction.
	Text string
}

const commentPrefix = "#"

var instructionTemplate = template.Must(template.New("instruction").Parse(`{{ .Text }}
# Write the instruction for the agent above. Lines starting with '#' are
# ignored, and an empty instruction cancels.
{{- if .Archive }}
#
# Project: {{ .Archive }}
{{- end }}
{{- if .Files }}
#
# Files:
{{- range .Files }}
#   {{ . }}
{{- end }}
{{- end }}
`))

// RenderInstruction renders the editing template.
func RenderInstruction(data InstructionData) (string, error) {
	var buf bytes.Buffer
	if err := instructionTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// ParseInstruction drops comment lines and surrounding blank space.
func ParseInstruction(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, commentPrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func createInstructionTempFile() (*os.File, error) {
	return os.CreateTemp("", "fileagent-instruction-*.md")
}

// EditInstruction opens the editor pre-populated with data and returns the
// instruction the user wrote. The result is empty when the user cancelled.
func EditInstruction(data InstructionData) (string, error) {
	content, err := RenderInstruction(data)
	if err != nil {
		return "", err
	}

	tmpfile, err := createInstructionTempFile()
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpfile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpfile.WriteString(content); err != nil {
		tmpfile.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := Edit(tmpPath); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("read edited file: %w", err)
	}

	return ParseInstruction(string(edited)), nil
}
