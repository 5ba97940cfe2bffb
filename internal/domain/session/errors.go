package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath marks a missing workspace, extension or working directory.
	ErrInvalidPath = errors.New("invalid path")
	// ErrSpawn marks a process the OS refused to start.
	ErrSpawn = errors.New("spawn failed")
	// ErrSessionNotFound is returned by AwaitCompletion for ids that are not live.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSupervisorClosed is returned by Launch after CleanupAll.
	ErrSupervisorClosed = errors.New("supervisor closed")
)

// InvalidPathError names the path that does not exist.
type InvalidPathError struct {
	Path string
	Role string // "extension", "working directory", ...
}

func (e *InvalidPathError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("invalid path: %s does not exist", e.Path)
	}
	return fmt.Sprintf("invalid path: %s %s does not exist", e.Role, e.Path)
}

func (e *InvalidPathError) Is(target error) bool { return target == ErrInvalidPath }

// SpawnError wraps the OS error from process creation.
type SpawnError struct {
	Target string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Target, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }
