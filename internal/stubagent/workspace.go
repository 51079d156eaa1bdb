package stubagent

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

var errInvalidPath = errors.New("invalid path")

// workspace holds the extracted files of one session keyed by slash path.
type workspace struct {
	files map[string][]byte
}

func extractArchive(data []byte) (*workspace, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	ws := &workspace{files: make(map[string][]byte)}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name, err := cleanPath(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name, err)
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		ws.files[name] = content
	}
	return ws, nil
}

// tree lists the workspace paths in sorted order.
func (ws *workspace) tree() []string {
	paths := make([]string, 0, len(ws.files))
	for name := range ws.files {
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths
}

func (ws *workspace) archive() ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, name := range ws.tree() {
		entry, err := writer.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := entry.Write(ws.files[name]); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ws *workspace) create(name, content string) string {
	cleaned, err := cleanPath(name)
	if err != nil {
		return fmt.Sprintf("Error: Path '%s' is invalid or outside of the workspace.", name)
	}
	ws.files[cleaned] = []byte(content)
	return fmt.Sprintf("File '%s' created successfully.", name)
}

func (ws *workspace) delete(name string) string {
	cleaned, err := cleanPath(name)
	if err != nil {
		return fmt.Sprintf("Error: Path '%s' is invalid or outside of the workspace.", name)
	}
	if _, ok := ws.files[cleaned]; !ok {
		return fmt.Sprintf("Error: File not found at '%s'.", name)
	}
	delete(ws.files, cleaned)
	return fmt.Sprintf("File '%s' deleted successfully.", name)
}

// cleanPath rejects absolute paths and paths escaping the workspace.
func cleanPath(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", errInvalidPath
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errInvalidPath
	}
	return cleaned, nil
}
