package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce     sync.Once
	fileagentPath string
	buildErr      error
)

// waitFileTimeout bounds the waitfile command.
const waitFileTimeout = 10 * time.Second

// BuildFileagent builds the fileagent binary once and returns its path.
func BuildFileagent(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "fileagent-bin-")
		if err != nil {
			buildErr = err
			return
		}

		fileagentPath = filepath.Join(binDir, "fileagent")
		cmd := exec.Command("go", "build", "-o", fileagentPath, "./cmd/fileagent")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build fileagent: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return fileagentPath
}

// SetupScriptEnv configures common environment variables for testscript.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("FILEAGENT", BuildFileagent(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("FILEAGENT_URL", "")
	env.Setenv("NO_COLOR", "1")
	return nil
}

// Commands returns the custom commands shared by the script tests.
func Commands() map[string]func(ts *testscript.TestScript, neg bool, args []string) {
	return map[string]func(ts *testscript.TestScript, neg bool, args []string){
		"envset":   CmdEnvSet,
		"mkzip":    CmdMkZip,
		"waitfile": CmdWaitFile,
	}
}

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

// CmdWaitFile blocks until a file exists and is non-empty. Background
// commands use it to signal readiness.
func CmdWaitFile(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("waitfile does not support negation")
	}
	if len(args) != 1 {
		ts.Fatalf("usage: waitfile FILE")
	}

	path := ts.MkAbs(args[0])
	deadline := time.Now().Add(waitFileTimeout)
	for {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return
		}
		if time.Now().After(deadline) {
			ts.Fatalf("timed out waiting for %s", args[0])
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// CmdMkZip writes a zip archive holding the named work-directory files under
// their relative names.
func CmdMkZip(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("mkzip does not support negation")
	}
	if len(args) < 1 {
		ts.Fatalf("usage: mkzip OUT [FILE...]")
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, name := range args[1:] {
		entry, err := writer.Create(filepath.ToSlash(name))
		ts.Check(err)
		_, err = entry.Write([]byte(ts.ReadFile(name)))
		ts.Check(err)
	}
	ts.Check(writer.Close())
	ts.Check(os.WriteFile(ts.MkAbs(args[0]), buf.Bytes(), 0o644))
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
