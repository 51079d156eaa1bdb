package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderInstruction(t *testing.T) {
	content, err := RenderInstruction(InstructionData{
		Archive: "project.zip",
		Files:   []string{"main.py", "docs/readme.md"},
		Text:    "rename main.py",
	})
	if err != nil {
		t.Fatalf("RenderInstruction failed: %v", err)
	}

	if !strings.HasPrefix(content, "rename main.py\n") {
		t.Errorf("expected pre-filled text first, got %q", content)
	}
	for _, want := range []string{"# Project: project.zip", "#   main.py", "#   docs/readme.md"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in template, got %q", want, content)
		}
	}
}

func TestRenderInstructionWithoutProject(t *testing.T) {
	content, err := RenderInstruction(InstructionData{})
	if err != nil {
		t.Fatalf("RenderInstruction failed: %v", err)
	}
	if strings.Contains(content, "Project:") || strings.Contains(content, "Files:") {
		t.Errorf("expected no project section, got %q", content)
	}
}

func TestParseInstruction(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "comments only", content: "\n# ignored\n#   main.py\n", want: ""},
		{name: "text and comments", content: "delete main.py\n# ignored\n", want: "delete main.py"},
		{name: "multi line", content: "first line\n\nsecond line\n# note", want: "first line\n\nsecond line"},
		{name: "crlf", content: "create a.txt\r\n# note\r\n", want: "create a.txt"},
		{name: "indented hash kept", content: "  # heading\n", want: "# heading"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseInstruction(tc.content); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRenderThenParseKeepsText(t *testing.T) {
	content, err := RenderInstruction(InstructionData{Files: []string{"a.txt"}, Text: "delete a.txt"})
	if err != nil {
		t.Fatalf("RenderInstruction failed: %v", err)
	}
	if got := ParseInstruction(content); got != "delete a.txt" {
		t.Fatalf("expected text to survive, got %q", got)
	}
}

func TestEditInstructionUsesEditor(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-editor")
	body := "#!/bin/sh\nprintf 'create notes.txt\\n# done\\n' > \"$1\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write editor script: %v", err)
	}
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", script)

	got, err := EditInstruction(InstructionData{Text: "placeholder"})
	if err != nil {
		t.Fatalf("EditInstruction failed: %v", err)
	}
	if got != "create notes.txt" {
		t.Fatalf("expected edited instruction, got %q", got)
	}
}

func TestCreateInstructionTempFileExtension(t *testing.T) {
	file, err := createInstructionTempFile()
	if err != nil {
		t.Fatalf("createInstructionTempFile failed: %v", err)
	}
	t.Cleanup(func() {
		os.Remove(file.Name())
	})

	if !strings.HasSuffix(file.Name(), ".md") {
		t.Errorf("expected temp file to end with .md, got %q", file.Name())
	}
}
