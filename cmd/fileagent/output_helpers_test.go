package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestWrapMessage(t *testing.T) {
	got := wrapMessage("  one two three four  ", 9)
	want := "one two\nthree\nfour"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := wrapMessage(" \n ", 20); got != "" {
		t.Fatalf("expected blank message to stay empty, got %q", got)
	}
}

func TestFormatFileTable(t *testing.T) {
	got := formatFileTable([]string{"main.py", "docs/readme.md"})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", got)
	}
	if !strings.HasPrefix(lines[0], "#  PATH") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if strings.TrimRight(lines[2], " ") != "2  docs/readme.md" {
		t.Fatalf("unexpected row %q", lines[2])
	}

	if got := formatFileTable(nil); got != "No files.\n" {
		t.Fatalf("expected empty listing message, got %q", got)
	}
}

func TestEncodeJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, map[string]int{"files": 2}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.String() != "{\n  \"files\": 2\n}\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintRunStepTruncatesLongPrompt(t *testing.T) {
	var buf bytes.Buffer
	step := runStep{
		Step:    "instruction",
		Prompt:  "create " + strings.Repeat("x", 80) + ".txt\nsecond line",
		Files:   []string{"a.txt"},
		Message: "done",
	}
	if err := printRunStep(&buf, step, 40); err != nil {
		t.Fatalf("print: %v", err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	if !strings.HasSuffix(header, "...") || strings.Contains(header, "second line") {
		t.Fatalf("expected truncated first line, got %q", header)
	}
	if !strings.Contains(buf.String(), "\ndone\n") {
		t.Fatalf("expected message after listing, got %q", buf.String())
	}
}
