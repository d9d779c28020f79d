// Package testutil provides helpers for running fontman tests in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Home      string
	ConfigDir string
}

// SetupTestEnv points HOME and the XDG config directory at a fresh
// temporary tree and clears fontman's environment variables, so tests
// never read the user's configuration or touch their fonts.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := Env{
		Home:      filepath.Join(tmpDir, "home"),
		ConfigDir: filepath.Join(tmpDir, "config"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("USERPROFILE", env.Home)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigDir)
	t.Setenv("APPDATA", env.ConfigDir)
	t.Setenv("FONTMAN_CONFIG", "")
	t.Setenv("FONTMAN_LOG_LEVEL", "")

	for _, dir := range []string{env.Home, env.ConfigDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
