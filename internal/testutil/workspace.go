package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// Workspace is a temporary extension workspace with src/ and examples/.
type Workspace struct {
	Root     string
	Src      string
	Examples string
}

// NewWorkspace creates a workspace under t.TempDir().
func NewWorkspace(t *testing.T) Workspace {
	t.Helper()
	root := t.TempDir()
	ws := Workspace{
		Root:     root,
		Src:      filepath.Join(root, "src"),
		Examples: filepath.Join(root, "examples"),
	}
	require.NoError(t, os.MkdirAll(ws.Src, 0o755))
	require.NoError(t, os.MkdirAll(ws.Examples, 0o755))
	return ws
}

// WriteFile writes content relative to root, creating parents.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// RequireShell skips tests that drive /bin/sh scripts.
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

// ShellCommand returns a command builder that runs script in /bin/sh
// instead of an editor.
func ShellCommand(script string) func(string, string) (string, []string) {
	return func(string, string) (string, []string) {
		return "/bin/sh", []string{"-c", script}
	}
}
