package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// ConfigDir returns the global config directory under homeDir.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", "fileagent")
}

// EnsureHomeDirs creates the global config directory under homeDir.
func EnsureHomeDirs(homeDir string) error {
	if err := os.MkdirAll(ConfigDir(homeDir), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return nil
}

// SetupTestHome creates a temp home directory, ensures the config dir, and sets HOME.
func SetupTestHome(t testing.TB) string {
	t.Helper()

	homeDir := t.TempDir()
	if err := EnsureHomeDirs(homeDir); err != nil {
		t.Fatalf("setup home dir: %v", err)
	}
	t.Setenv("HOME", homeDir)
	return homeDir
}
