package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amonks/fileagent/internal/ui"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"
)

const (
	defaultWrapWidth = 80
	maxWrapWidth     = 100
)

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// wrapWidth returns the width used to reflow agent messages.
func wrapWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWrapWidth
	}
	return min(width, maxWrapWidth)
}

func wrapMessage(message string, width int) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	return wordwrap.String(message, width)
}

func formatFileTable(files []string) string {
	if len(files) == 0 {
		return "No files.\n"
	}
	builder := ui.NewTableBuilder([]string{"#", "PATH"}, len(files))
	for i, file := range files {
		builder.AddRow([]string{strconv.Itoa(i + 1), file})
	}
	return builder.String()
}
