package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	// PromptFileName is the machine-oriented prompt artifact.
	PromptFileName = ".PROMPT"
	// PromptTextFileName is the human-readable duplicate.
	PromptTextFileName = "PROMPT.txt"
	// StopToolName is the tool the prompt reader is told to call when done.
	StopToolName = "stop_dev_extension"
)

// Artifacts are the on-disk files belonging to one session.
type Artifacts struct {
	Dir        string
	PromptPath string
	TextPath   string
}

// RenderPrompt appends the session footer to the prompt text.
func RenderPrompt(sessionID, prompt string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(prompt, "\n"))
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "Session ID: %s\n", sessionID)
	fmt.Fprintf(&sb, "When you have finished, call the %s tool with sessionId %q.\n", StopToolName, sessionID)
	return sb.String()
}

// WritePrompt writes both prompt artifacts into dir, overwriting earlier
// files. The machine-oriented file doubles as an advisory lock so two
// supervisors sharing a workspace never interleave writes.
func WritePrompt(dir, sessionID, prompt string) (Artifacts, error) {
	a := Artifacts{
		Dir:        dir,
		PromptPath: filepath.Join(dir, PromptFileName),
		TextPath:   filepath.Join(dir, PromptTextFileName),
	}

	lock := flock.New(a.PromptPath)
	if err := lock.Lock(); err != nil {
		return Artifacts{}, fmt.Errorf("lock prompt file: %w", err)
	}
	defer lock.Unlock()

	content := []byte(RenderPrompt(sessionID, prompt))
	if err := os.WriteFile(a.PromptPath, content, 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("write prompt file: %w", err)
	}
	if err := os.WriteFile(a.TextPath, content, 0o644); err != nil {
		_ = os.Remove(a.PromptPath)
		return Artifacts{}, fmt.Errorf("write prompt text file: %w", err)
	}
	return a, nil
}

// Remove deletes both artifacts. Missing files are not an error.
func (a Artifacts) Remove() error {
	var errs []error
	for _, path := range []string{a.PromptPath, a.TextPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
