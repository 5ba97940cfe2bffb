package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionIDPattern = regexp.MustCompile(`^test-[a-z0-9]{8}$`)

type workspace struct {
	root     string
	src      string
	examples string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		root:     root,
		src:      filepath.Join(root, "src"),
		examples: filepath.Join(root, "examples"),
	}
	require.NoError(t, os.MkdirAll(ws.src, 0o755))
	require.NoError(t, os.MkdirAll(ws.examples, 0o755))
	return ws
}

func shellCommand(script string) CommandFunc {
	return func(string, string) (string, []string) {
		return "/bin/sh", []string{"-c", script}
	}
}

type recordingObserver struct {
	mu        sync.Mutex
	launched  []SessionInfo
	completed []CompletionResult
}

func (o *recordingObserver) SessionLaunched(info SessionInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.launched = append(o.launched, info)
}

func (o *recordingObserver) SessionCompleted(result CompletionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = append(o.completed, result)
}

func (o *recordingObserver) completions(id string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, r := range o.completed {
		if r.SessionID == id {
			n++
		}
	}
	return n
}

func newTestSupervisor(t *testing.T, script string, opts ...Option) *Supervisor {
	t.Helper()
	requireShell(t)
	sup := NewSupervisor(append([]Option{WithCommand(shellCommand(script))}, opts...)...)
	t.Cleanup(sup.CleanupAll)
	return sup
}

func TestLaunchReturnsImmediately(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, "sleep 30")

	start := time.Now()
	sid, err := sup.Launch(context.Background(), ws.src, "Try the command palette", ws.examples)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Regexp(t, sessionIDPattern, sid)

	prompt, err := os.ReadFile(filepath.Join(ws.examples, PromptFileName))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "Try the command palette")
	assert.Contains(t, string(prompt), sid)
	assert.Contains(t, string(prompt), StopToolName)
	assert.FileExists(t, filepath.Join(ws.examples, PromptTextFileName))

	sessions := sup.ListSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, sid, sessions[0].ID)
	assert.True(t, sessions[0].Current)
	assert.Equal(t, "running", sessions[0].State)
	assert.Greater(t, sessions[0].PID, 0)

	cur, ok := sup.Current()
	require.True(t, ok)
	assert.Equal(t, sid, cur)

	info, ok := sup.Get(sid)
	require.True(t, ok)
	assert.Equal(t, ws.src, info.Target)
	assert.Equal(t, ws.examples, info.WorkingDir)
}

func TestLaunchMissingExtensionPath(t *testing.T) {
	root := t.TempDir()
	examples := filepath.Join(root, "examples")
	require.NoError(t, os.MkdirAll(examples, 0o755))
	src := filepath.Join(root, "src")

	sup := newTestSupervisor(t, "sleep 30")
	_, err := sup.Launch(context.Background(), src, "prompt", examples)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPath))
	var pathErr *InvalidPathError
	require.True(t, errors.As(err, &pathErr))
	assert.Equal(t, src, pathErr.Path)
	assert.Contains(t, err.Error(), src)

	assert.NoFileExists(t, filepath.Join(examples, PromptFileName))
	assert.Empty(t, sup.ListSessions())
}

func TestLaunchMissingWorkingDir(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, os.RemoveAll(ws.examples))

	sup := newTestSupervisor(t, "sleep 30")
	_, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)

	var pathErr *InvalidPathError
	require.True(t, errors.As(err, &pathErr))
	assert.Equal(t, ws.examples, pathErr.Path)
}

func TestLaunchSpawnErrorRollsBack(t *testing.T) {
	ws := newWorkspace(t)
	sup := NewSupervisor(WithCommand(func(string, string) (string, []string) {
		return filepath.Join(ws.root, "not-an-editor"), nil
	}))

	_, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
	assert.ErrorIs(t, err, ErrSpawn)
	assert.NoFileExists(t, filepath.Join(ws.examples, PromptFileName))
	assert.NoFileExists(t, filepath.Join(ws.examples, PromptTextFileName))
	assert.Empty(t, sup.ListSessions())
	_, ok := sup.Current()
	assert.False(t, ok)
}

func TestPromptVisibleToProcess(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, `while [ ! -f release ]; do sleep 0.02; done; cat `+PromptFileName)

	sid, err := sup.Launch(context.Background(), ws.src, "read me", ws.examples)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() {
		assert.Eventually(t, func() bool { return sup.broker.Waiting(sid) == 1 },
			2*time.Second, 5*time.Millisecond)
		_ = os.WriteFile(filepath.Join(ws.examples, "release"), nil, 0o644)
	}()

	res, err := sup.AwaitCompletion(ctx, sid)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "read me")
	assert.Contains(t, res.Stdout, sid)
}

func TestStopByIDWithinOneSecond(t *testing.T) {
	ws := newWorkspace(t)
	obs := &recordingObserver{}
	sup := newTestSupervisor(t, "echo started; sleep 30", WithObserver(obs))

	sid, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
	require.NoError(t, err)
	launchedAt := time.Now()

	time.Sleep(50 * time.Millisecond)
	elapsed := time.Since(launchedAt)
	res, ok := sup.StopByID(context.Background(), sid)
	require.True(t, ok)
	require.NotNil(t, res)

	assert.Equal(t, sid, res.SessionID)
	assert.Equal(t, CauseStopped, res.Cause)
	if res.ExitCode != nil {
		assert.GreaterOrEqual(t, *res.ExitCode, 0)
		assert.Less(t, *res.ExitCode, 256)
	}
	assert.GreaterOrEqual(t, res.Duration, elapsed)
	assert.Less(t, time.Since(launchedAt), 5*time.Second)

	assert.Empty(t, sup.ListSessions())
	_, ok = sup.Current()
	assert.False(t, ok)
	assert.NoFileExists(t, filepath.Join(ws.examples, PromptFileName))
	assert.NoFileExists(t, filepath.Join(ws.examples, PromptTextFileName))

	_, ok = sup.StopByID(context.Background(), sid)
	assert.False(t, ok, "second stop finds nothing")

	assert.Len(t, obs.launched, 1)
	assert.Equal(t, 1, obs.completions(sid))
}

func TestStopUnknownIsNoop(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, "sleep 30")

	sid, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
	require.NoError(t, err)

	res, ok := sup.StopByID(context.Background(), "nonexistent-id")
	assert.False(t, ok)
	assert.Nil(t, res)

	assert.FileExists(t, filepath.Join(ws.examples, PromptFileName), "other sessions' artifacts are untouched")
	_, found := sup.Get(sid)
	assert.True(t, found)
}

func TestStopCurrent(t *testing.T) {
	first, second := newWorkspace(t), newWorkspace(t)
	sup := newTestSupervisor(t, "sleep 30")

	res, ok := sup.StopCurrent(context.Background())
	assert.False(t, ok)
	assert.Nil(t, res)

	id1, err := sup.Launch(context.Background(), first.src, "one", first.examples)
	require.NoError(t, err)
	id2, err := sup.Launch(context.Background(), second.src, "two", second.examples)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	res, ok = sup.StopCurrent(context.Background())
	require.True(t, ok)
	assert.Equal(t, id2, res.SessionID)

	_, ok = sup.Current()
	assert.False(t, ok, "current is cleared, not rolled back to an older session")

	sessions := sup.ListSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, id1, sessions[0].ID)
	assert.False(t, sessions[0].Current)
}

func TestExternalExitResolvesWaiter(t *testing.T) {
	ws := newWorkspace(t)
	obs := &recordingObserver{}
	sup := newTestSupervisor(t,
		`while [ ! -f release ]; do sleep 0.02; done; echo hello; echo oops 1>&2; exit 0`,
		WithObserver(obs))

	sid, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
	require.NoError(t, err)

	type outcome struct {
		res CompletionResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := sup.AwaitCompletion(context.Background(), sid)
		done <- outcome{res, err}
	}()
	require.Eventually(t, func() bool { return sup.broker.Waiting(sid) == 1 },
		2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(ws.examples, "release"), nil, 0o644))

	var got outcome
	select {
	case got = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("waiter never resolved")
	}
	require.NoError(t, got.err)
	require.NotNil(t, got.res.ExitCode)
	assert.Equal(t, 0, *got.res.ExitCode)
	assert.Equal(t, CauseExited, got.res.Cause)
	assert.Equal(t, "hello\n", got.res.Stdout)
	assert.Equal(t, "oops\n", got.res.Stderr)

	assert.Empty(t, sup.ListSessions(), "removed by the time the waiter wakes")
	assert.NoFileExists(t, filepath.Join(ws.examples, PromptFileName))
	assert.Equal(t, 1, obs.completions(sid))

	_, err = sup.AwaitCompletion(context.Background(), sid)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStopRacingExitDeliversOnce(t *testing.T) {
	obs := &recordingObserver{}
	sup := newTestSupervisor(t, "sleep 0.05", WithObserver(obs))

	for i := 0; i < 10; i++ {
		ws := newWorkspace(t)
		sid, err := sup.Launch(context.Background(), ws.src, "race", ws.examples)
		require.NoError(t, err)

		results := make(chan CompletionResult, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if res, err := sup.AwaitCompletion(context.Background(), sid); err == nil {
				results <- res
			}
		}()
		go func() {
			defer wg.Done()
			time.Sleep(40 * time.Millisecond)
			sup.StopByID(context.Background(), sid)
		}()
		wg.Wait()
		close(results)

		var received int
		for range results {
			received++
		}
		assert.LessOrEqual(t, received, 1)
		require.Eventually(t, func() bool { return obs.completions(sid) == 1 },
			5*time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 1, obs.completions(sid), "exactly one producer completes the session")
	}
}

func TestStopResultMatchesWaiterResult(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, "echo ready; sleep 30")

	sid, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
	require.NoError(t, err)

	waited := make(chan CompletionResult, 1)
	go func() {
		res, err := sup.AwaitCompletion(context.Background(), sid)
		if err == nil {
			waited <- res
		}
	}()
	require.Eventually(t, func() bool { return sup.broker.Waiting(sid) == 1 },
		2*time.Second, 5*time.Millisecond)

	stopped, ok := sup.StopByID(context.Background(), sid)
	require.True(t, ok)

	select {
	case res := <-waited:
		assert.Equal(t, *stopped, res)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not resolved by stop")
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, `trap "" TERM; while true; do sleep 0.05; done`,
		WithGracePeriod(200*time.Millisecond))

	sid, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	res, ok := sup.StopByID(context.Background(), sid)
	require.True(t, ok)
	assert.Nil(t, res.ExitCode)
	assert.Empty(t, sup.ListSessions())
}

func TestCleanupAll(t *testing.T) {
	sup := newTestSupervisor(t, `trap "" TERM; while true; do sleep 0.05; done`)

	var ids []string
	var dirs []string
	for i := 0; i < 2; i++ {
		ws := newWorkspace(t)
		sid, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
		require.NoError(t, err)
		ids = append(ids, sid)
		dirs = append(dirs, ws.examples)
	}

	waited := make(chan CompletionResult, 1)
	go func() {
		res, err := sup.AwaitCompletion(context.Background(), ids[0])
		if err == nil {
			waited <- res
		}
	}()
	require.Eventually(t, func() bool { return sup.broker.Waiting(ids[0]) == 1 },
		2*time.Second, 5*time.Millisecond)

	start := time.Now()
	sup.CleanupAll()
	assert.Less(t, time.Since(start), DefaultGracePeriod, "no graceful two-step")

	assert.Empty(t, sup.ListSessions())
	_, ok := sup.Current()
	assert.False(t, ok)
	for _, dir := range dirs {
		assert.NoFileExists(t, filepath.Join(dir, PromptFileName))
	}

	select {
	case res := <-waited:
		assert.Equal(t, CauseKilled, res.Cause)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not resolved by cleanup")
	}

	_, ok = sup.StopByID(context.Background(), ids[1])
	assert.False(t, ok)
}

func TestCloseRejectsLaunch(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, "sleep 30")
	sup.Close()

	_, err := sup.Launch(context.Background(), ws.src, "prompt", ws.examples)
	assert.ErrorIs(t, err, ErrSupervisorClosed)
}

func TestIDsAreNeverReused(t *testing.T) {
	ws := newWorkspace(t)
	ids := []string{"test-aaaaaaaa", "test-aaaaaaaa", "test-bbbbbbbb"}
	var n int
	sup := newTestSupervisor(t, "sleep 30", WithIDGenerator(func() string {
		sid := ids[n%len(ids)]
		n++
		return sid
	}))

	id1, err := sup.Launch(context.Background(), ws.src, "one", ws.examples)
	require.NoError(t, err)
	_, ok := sup.StopByID(context.Background(), id1)
	require.True(t, ok)

	id2, err := sup.Launch(context.Background(), ws.src, "two", ws.examples)
	require.NoError(t, err)
	assert.Equal(t, "test-aaaaaaaa", id1)
	assert.Equal(t, "test-bbbbbbbb", id2)
}

func TestCompletionResultString(t *testing.T) {
	r := CompletionResult{SessionID: "test-12345678", Cause: CauseStopped, Duration: 1500 * time.Millisecond}
	assert.Equal(t, "test-12345678 stopped after 1.5s (exit code: none)", r.String())

	r.ExitCode = intPtr(2)
	assert.Contains(t, r.String(), "exit code: 2")
}

func TestRunReportsImmediateExit(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, "echo quick; exit 3")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sid, res, err := sup.Run(ctx, ws.src, "prompt", ws.examples)
	require.NoError(t, err)
	assert.Regexp(t, sessionIDPattern, sid)
	assert.Equal(t, sid, res.SessionID)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
	assert.Equal(t, "quick\n", res.Stdout)
	assert.Equal(t, CauseExited, res.Cause)
}

func TestRunContextEndsSessionKeepsRunning(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, "sleep 30")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sid, _, err := sup.Run(ctx, ws.src, "prompt", ws.examples)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotEmpty(t, sid)

	_, ok := sup.Get(sid)
	assert.True(t, ok)
	assert.Equal(t, 0, sup.broker.Waiting(sid))

	res, ok := sup.StopByID(context.Background(), sid)
	require.True(t, ok)
	assert.Equal(t, sid, res.SessionID)
}

func TestRunInvalidPath(t *testing.T) {
	ws := newWorkspace(t)
	sup := newTestSupervisor(t, "sleep 30")

	sid, _, err := sup.Run(context.Background(), filepath.Join(ws.root, "nope"), "prompt", ws.examples)
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Empty(t, sid)
}
