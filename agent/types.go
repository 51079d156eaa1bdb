package agent

import (
	"encoding/json"
	"strings"
)

// UploadResult is the normalized response to an upload.
type UploadResult struct {
	SessionID string
	Files     []string
	Message   string
}

// InstructionResult is the normalized response to an instruction.
type InstructionResult struct {
	Files   []string
	Message string
}

// Archive is a downloaded project archive.
type Archive struct {
	Filename string
	Data     []byte
}

type fileNode struct {
	Path string `json:"path"`
}

type uploadResponse struct {
	SessionID string     `json:"session_id"`
	FileTree  []fileNode `json:"file_tree"`
	Message   string     `json:"message"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	Status   string     `json:"status"`
	Message  string     `json:"message"`
	FileTree []fileNode `json:"file_tree"`
}

type filesResponse struct {
	FileTree []fileNode `json:"file_tree"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// flattenTree converts a wire file tree into an ordered path list. A missing
// tree becomes an empty list.
func flattenTree(tree []fileNode) []string {
	files := make([]string, 0, len(tree))
	for _, node := range tree {
		files = append(files, node.Path)
	}
	return files
}

// detailText extracts a readable message from a service error body. The
// service reports `{"detail": "..."}`; validation failures carry a list.
func detailText(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		return strings.TrimSpace(string(payload.Detail))
	}
	return strings.TrimSpace(string(body))
}
