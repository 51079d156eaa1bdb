package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "", want: slog.LevelInfo},
		{name: "info", want: slog.LevelInfo},
		{name: "DEBUG", want: slog.LevelDebug},
		{name: " warn ", want: slog.LevelWarn},
		{name: "warning", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "loud", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseLevel(tc.name)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseLevel(%q): expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestParseLevelListsValidNames(t *testing.T) {
	_, err := ParseLevel("loud")
	if !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel, got %v", err)
	}
	want := `unknown log level: "loud" (valid: debug, info, warn, error)`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestNewFansOutToTerminalAndFile(t *testing.T) {
	var terminal bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "fileagent.log")

	logger, closeFn, err := New(Options{Level: "info", Terminal: &terminal, File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("operation completed", "operation", "uploading")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if strings.Contains(terminal.String(), "hidden") {
		t.Fatalf("expected debug record to be filtered, got %q", terminal.String())
	}
	if !strings.Contains(terminal.String(), "operation=uploading") {
		t.Fatalf("expected text record, got %q", terminal.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", data, err)
	}
	if record["msg"] != "operation completed" || record["operation"] != "uploading" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewWithoutDestinationsDiscards(t *testing.T) {
	logger, closeFn, err := New(Options{})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Error("nowhere")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "chatty"}); err == nil {
		t.Fatalf("expected error")
	}
}
