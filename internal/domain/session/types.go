package session

import (
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateLaunched State = iota
	StateRunning
	StateStopping
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLaunched:
		return "launched"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Cause records which producer completed a session.
type Cause string

const (
	CauseStopped Cause = "stopped" // explicit stop request
	CauseExited  Cause = "exited"  // process exited on its own
	CauseKilled  Cause = "killed"  // forced kill during cleanup
)

// Session is one supervised extension-host run. It owns its process handle;
// everything outside the registry refers to it by ID.
type Session struct {
	ID         string
	Target     string
	Prompt     string
	WorkingDir string
	StartedAt  time.Time

	handle    *Handle
	artifacts Artifacts
	state     atomic.Int32
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Info returns a point-in-time snapshot of the session.
func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		ID:         s.ID,
		Target:     s.Target,
		WorkingDir: s.WorkingDir,
		StartedAt:  s.StartedAt,
		State:      s.State().String(),
		PID:        -1,
	}
	if s.handle != nil {
		info.PID = s.handle.PID()
		info.StdoutBytes, info.StderrBytes = s.handle.OutputSizes()
	}
	return info
}

// SessionInfo is the public representation of a session.
type SessionInfo struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	WorkingDir  string    `json:"working_dir"`
	StartedAt   time.Time `json:"started_at"`
	State       string    `json:"state"`
	PID         int       `json:"pid"`
	StdoutBytes int       `json:"stdout_bytes"`
	StderrBytes int       `json:"stderr_bytes"`
	Current     bool      `json:"current"`
}

// CompletionResult is produced exactly once per session.
type CompletionResult struct {
	SessionID string        `json:"session_id"`
	Duration  time.Duration `json:"duration"`
	ExitCode  *int          `json:"exit_code,omitempty"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	Cause     Cause         `json:"cause"`
}
