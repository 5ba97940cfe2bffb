package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/shared/id"
)

const (
	// DefaultGracePeriod is how long a stopped process gets to exit after
	// the graceful signal before it is killed.
	DefaultGracePeriod = 5 * time.Second

	cleanupWait = 3 * time.Second
)

// CommandFunc builds the editor invocation for an extension and working dir.
type CommandFunc func(targetPath, workingDir string) (bin string, args []string)

// EditorCommand launches a VS Code compatible editor as an extension
// development host. --wait keeps the CLI attached until the window closes.
func EditorCommand(bin string) CommandFunc {
	return func(targetPath, workingDir string) (string, []string) {
		return bin, []string{
			"--new-window",
			"--wait",
			"--extensionDevelopmentPath=" + targetPath,
			workingDir,
		}
	}
}

// Observer is notified of session lifecycle transitions. Calls happen
// outside all supervisor locks and must not block for long.
type Observer interface {
	SessionLaunched(info SessionInfo)
	SessionCompleted(result CompletionResult)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l.Named("session")
		}
	}
}

// WithCommand sets how the editor process is built.
func WithCommand(fn CommandFunc) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.command = fn
		}
	}
}

// WithGracePeriod sets the graceful-stop window.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(s *Supervisor) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithIDGenerator replaces the session ID source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Supervisor runs extension-host sessions. Launch returns immediately;
// AwaitCompletion blocks until the session is stopped, exits on its own, or
// is killed by CleanupAll. Exactly one of those producers completes a session.
type Supervisor struct {
	registry  *Registry
	broker    *Broker
	logger    *logging.Logger
	command   CommandFunc
	grace     time.Duration
	newID     func() string
	observers []Observer

	idMu   sync.Mutex
	issued map[string]struct{}

	closed atomic.Bool
}

// NewSupervisor creates a supervisor with its own registry and broker.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		registry: NewRegistry(),
		broker:   NewBroker(),
		logger:   logging.NewNop(),
		command:  EditorCommand("code"),
		grace:    DefaultGracePeriod,
		newID:    func() string { return id.NewSessionID().String() },
		issued:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Launch validates paths, writes the prompt artifacts into workingDir,
// spawns the editor and registers the session as current.
func (s *Supervisor) Launch(ctx context.Context, targetPath, prompt, workingDir string) (string, error) {
	sid, _, err := s.launch(ctx, targetPath, prompt, workingDir, false)
	return sid, err
}

// Run launches a session and blocks until it completes. Interest in the
// result is registered before the process starts, so a process that exits
// immediately is still reported. When ctx ends first the session keeps
// running and ctx.Err() is returned with its id.
func (s *Supervisor) Run(ctx context.Context, targetPath, prompt, workingDir string) (string, CompletionResult, error) {
	sid, waiter, err := s.launch(ctx, targetPath, prompt, workingDir, true)
	if err != nil {
		return "", CompletionResult{}, err
	}
	res, err := waiter.Wait(ctx)
	return sid, res, err
}

func (s *Supervisor) launch(ctx context.Context, targetPath, prompt, workingDir string, subscribe bool) (string, *Waiter, error) {
	if s.closed.Load() {
		return "", nil, ErrSupervisorClosed
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if err := requireDir(targetPath, "extension"); err != nil {
		return "", nil, err
	}
	if err := requireDir(workingDir, "working directory"); err != nil {
		return "", nil, err
	}

	sid := s.nextID()
	artifacts, err := WritePrompt(workingDir, sid, prompt)
	if err != nil {
		return "", nil, err
	}

	sess := &Session{
		ID:         sid,
		Target:     targetPath,
		Prompt:     prompt,
		WorkingDir: workingDir,
		artifacts:  artifacts,
	}
	sess.setState(StateLaunched)

	bin, args := s.command(targetPath, workingDir)
	s.broker.Open(sid)
	var waiter *Waiter
	if subscribe {
		// The slot was opened just above, so this cannot fail.
		waiter, _ = s.broker.Subscribe(sid)
	}
	handle, err := Spawn(bin, SpawnOptions{
		Args:    args,
		Dir:     workingDir,
		OnChunk: s.chunkLogger(sid),
	})
	if err != nil {
		s.broker.Discard(sid)
		if rmErr := artifacts.Remove(); rmErr != nil {
			s.logger.Warn("Failed to remove prompt artifacts", zap.String("session_id", sid), zap.Error(rmErr))
		}
		return "", nil, err
	}

	sess.handle = handle
	sess.StartedAt = handle.Started()
	sess.setState(StateRunning)

	if err := s.registry.Put(sess); err != nil {
		handle.Kill()
		s.broker.Discard(sid)
		_ = artifacts.Remove()
		return "", nil, err
	}
	s.registry.SetCurrent(sid)

	go s.watchExit(sess)

	s.logger.Info("Session launched",
		zap.String("session_id", sid),
		zap.String("target", targetPath),
		zap.String("working_dir", workingDir),
		zap.Int("pid", handle.PID()),
	)
	info := sess.Info()
	info.Current = true
	for _, o := range s.observers {
		o.SessionLaunched(info)
	}
	return sid, waiter, nil
}

// AwaitCompletion blocks until the session's result is published. It fails
// with ErrSessionNotFound when id is not live, and with ctx.Err() when ctx
// ends first; the session itself keeps running in that case.
func (s *Supervisor) AwaitCompletion(ctx context.Context, sessionID string) (CompletionResult, error) {
	return s.broker.Await(ctx, sessionID)
}

// StopCurrent stops the current session. ok is false when there is none.
func (s *Supervisor) StopCurrent(ctx context.Context) (*CompletionResult, bool) {
	sid, ok := s.registry.Current()
	if !ok {
		return nil, false
	}
	return s.StopByID(ctx, sid)
}

// StopByID terminates a session and returns its result; the same result is
// delivered to any AwaitCompletion waiter. ok is false when the id is
// unknown or another producer already owns the termination.
func (s *Supervisor) StopByID(ctx context.Context, sessionID string) (*CompletionResult, bool) {
	sess, ok := s.registry.Claim(sessionID)
	if !ok {
		return nil, false
	}

	s.logger.Info("Stopping session", zap.String("session_id", sessionID))
	exitCode, forced := sess.handle.Terminate(ctx, s.grace)
	if forced {
		s.logger.Warn("Session ignored termination signal, killed",
			zap.String("session_id", sessionID),
			zap.Duration("grace", s.grace),
		)
	}

	result := s.complete(sess, CauseStopped, exitCode)
	return &result, true
}

// ListSessions returns a snapshot of live sessions.
func (s *Supervisor) ListSessions() []SessionInfo {
	infos, _ := s.registry.Snapshot()
	return infos
}

// Current returns the current session id.
func (s *Supervisor) Current() (string, bool) {
	return s.registry.Current()
}

// Get returns a snapshot of one session.
func (s *Supervisor) Get(sessionID string) (SessionInfo, bool) {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		return SessionInfo{}, false
	}
	info := sess.Info()
	cur, _ := s.registry.Current()
	info.Current = cur == sessionID
	return info, true
}

// CleanupAll kills every live process outright, deletes prompt artifacts
// and empties the registry. Waiters receive a CauseKilled result.
func (s *Supervisor) CleanupAll() {
	sessions := s.registry.Drain()
	if len(sessions) == 0 {
		return
	}

	for _, sess := range sessions {
		sess.setState(StateTerminated)
		sess.handle.Kill()
		if err := sess.artifacts.Remove(); err != nil {
			s.logger.Warn("Failed to remove prompt artifacts", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}

	deadline := time.NewTimer(cleanupWait)
	defer deadline.Stop()
	for _, sess := range sessions {
		select {
		case <-sess.handle.Done():
		case <-deadline.C:
		}
		result := s.buildResult(sess, CauseKilled, sess.handle.ExitCode())
		s.broker.Publish(sess.ID, result)
		s.logger.Info("Session killed during cleanup", zap.String("session_id", sess.ID))
		s.notifyCompleted(result)
	}
}

// Close rejects further launches and cleans up.
func (s *Supervisor) Close() {
	s.closed.Store(true)
	s.CleanupAll()
}

// watchExit completes the session when the process exits on its own.
func (s *Supervisor) watchExit(sess *Session) {
	<-sess.handle.Done()

	if _, ok := s.registry.Claim(sess.ID); !ok {
		return
	}
	s.logger.Info("Session process exited", zap.String("session_id", sess.ID))
	s.complete(sess, CauseExited, sess.handle.ExitCode())
}

// complete is the single terminal transition. The caller must have claimed
// sess. Removal and publication happen under the registry lock.
func (s *Supervisor) complete(sess *Session, cause Cause, exitCode *int) CompletionResult {
	result := s.buildResult(sess, cause, exitCode)

	if err := sess.artifacts.Remove(); err != nil {
		s.logger.Warn("Failed to remove prompt artifacts", zap.String("session_id", sess.ID), zap.Error(err))
	}

	var delivered bool
	_, removed := s.registry.Remove(sess.ID, func(*Session) {
		delivered = s.broker.Publish(sess.ID, result)
	})
	if !removed {
		return result
	}

	s.logger.Info("Session completed",
		zap.String("session_id", sess.ID),
		zap.String("cause", string(cause)),
		zap.Duration("duration", result.Duration),
		zap.Bool("delivered", delivered),
	)
	s.notifyCompleted(result)
	return result
}

func (s *Supervisor) buildResult(sess *Session, cause Cause, exitCode *int) CompletionResult {
	return CompletionResult{
		SessionID: sess.ID,
		Duration:  time.Since(sess.StartedAt),
		ExitCode:  exitCode,
		Stdout:    sess.handle.Stdout(),
		Stderr:    sess.handle.Stderr(),
		Cause:     cause,
	}
}

func (s *Supervisor) notifyCompleted(result CompletionResult) {
	for _, o := range s.observers {
		o.SessionCompleted(result)
	}
}

func (s *Supervisor) chunkLogger(sessionID string) ChunkFunc {
	logger := s.logger.With(zap.String("session_id", sessionID))
	return func(stream Stream, chunk []byte) {
		if ce := logger.Check(zap.DebugLevel, "Session output"); ce != nil {
			ce.Write(zap.String("stream", stream.String()), zap.Int("bytes", len(chunk)))
		}
	}
}

// nextID returns an id that this supervisor has never issued.
func (s *Supervisor) nextID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	for {
		sid := s.newID()
		if _, used := s.issued[sid]; used {
			continue
		}
		s.issued[sid] = struct{}{}
		return sid
	}
}

func requireDir(path, role string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &InvalidPathError{Path: path, Role: role}
	}
	if !info.IsDir() {
		return &InvalidPathError{Path: path, Role: role}
	}
	return nil
}

// String implements fmt.Stringer for log-friendly summaries.
func (r CompletionResult) String() string {
	code := "none"
	if r.ExitCode != nil {
		code = fmt.Sprintf("%d", *r.ExitCode)
	}
	return fmt.Sprintf("%s %s after %s (exit code: %s)", r.SessionID, r.Cause, r.Duration.Round(time.Millisecond), code)
}
