package session

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Stream identifies one of the two captured output streams.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// String returns the stream name used in logs.
func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ChunkFunc observes every chunk a process writes, in arrival order per stream.
// It runs on the stream copy goroutine and must not block.
type ChunkFunc func(stream Stream, chunk []byte)

// SpawnOptions configures a process launch.
type SpawnOptions struct {
	Args    []string
	Dir     string
	Env     []string
	OnChunk ChunkFunc
	// WaitDelay bounds how long output pipes are drained after the process
	// exits; helper processes that inherit the pipes would otherwise hold Wait open.
	WaitDelay time.Duration
}

const defaultWaitDelay = 2 * time.Second

// Handle owns one spawned OS process. It captures both output streams in
// memory, exposes a kill primitive and closes Done when the process exits.
// Handle is safe for concurrent use.
type Handle struct {
	target  string
	cmd     *exec.Cmd
	started time.Time

	stdout outputBuffer
	stderr outputBuffer

	done     chan struct{}
	mu       sync.RWMutex
	exitCode *int
	exitErr  error
}

// Spawn starts target with the given options. The target is resolved with
// exec.LookPath, so a bare name is searched in PATH and a path must exist.
func Spawn(target string, opts SpawnOptions) (*Handle, error) {
	path, err := exec.LookPath(target)
	if err != nil {
		return nil, &SpawnError{Target: target, Err: err}
	}

	cmd := exec.Command(path, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.WaitDelay = opts.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	configureProcAttr(cmd)

	h := &Handle{
		target: target,
		cmd:    cmd,
		done:   make(chan struct{}),
	}
	cmd.Stdout = &streamWriter{buf: &h.stdout, stream: Stdout, onChunk: opts.OnChunk}
	cmd.Stderr = &streamWriter{buf: &h.stderr, stream: Stderr, onChunk: opts.OnChunk}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Target: target, Err: err}
	}
	h.started = time.Now()

	go h.wait()

	return h, nil
}

// wait reaps the process. Output copying has finished (or WaitDelay expired)
// by the time Wait returns, so captured output is complete once Done closes.
func (h *Handle) wait() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.exitErr = err
	h.exitCode = exitCodeOf(h.cmd.ProcessState)
	h.mu.Unlock()

	close(h.done)
}

// exitCodeOf returns nil when the process was terminated by a signal.
func exitCodeOf(state *os.ProcessState) *int {
	if state == nil {
		return nil
	}
	code := state.ExitCode()
	if code < 0 {
		return nil
	}
	return &code
}

// Terminate sends a graceful termination signal and escalates to a forced
// kill when the process has not exited within grace, or when ctx is done
// first. It returns the exit code (nil if none was reported) and whether the
// forced kill was needed. Calling it on an exited process is a no-op.
func (h *Handle) Terminate(ctx context.Context, grace time.Duration) (*int, bool) {
	if h.Exited() {
		return h.ExitCode(), false
	}

	_ = signalProcess(h.cmd.Process, true)

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.ExitCode(), false
	case <-timer.C:
	case <-ctx.Done():
	}

	h.Kill()
	<-h.done
	return h.ExitCode(), true
}

// Kill forcefully kills the process (and its group where supported) without
// waiting. It is a no-op after exit.
func (h *Handle) Kill() {
	if h.Exited() {
		return
	}
	_ = signalProcess(h.cmd.Process, false)
}

// Done is closed once the process has exited and its output is drained.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether Done has been closed.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code, or nil if the process has not exited or was
// killed by a signal.
func (h *Handle) ExitCode() *int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.exitCode == nil {
		return nil
	}
	code := *h.exitCode
	return &code
}

// ExitErr returns the error reported by Wait, if any.
func (h *Handle) ExitErr() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exitErr
}

// PID returns the OS process id.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return -1
	}
	return h.cmd.Process.Pid
}

// Target returns the executable the handle was spawned from.
func (h *Handle) Target() string { return h.target }

// Started returns the spawn time.
func (h *Handle) Started() time.Time { return h.started }

// Stdout returns everything written to standard output so far.
func (h *Handle) Stdout() string { return h.stdout.String() }

// Stderr returns everything written to standard error so far.
func (h *Handle) Stderr() string { return h.stderr.String() }

// OutputSizes returns the captured byte counts of both streams.
func (h *Handle) OutputSizes() (stdout, stderr int) {
	return h.stdout.Len(), h.stderr.Len()
}

// outputBuffer is an append-only, lock-protected byte buffer.
type outputBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *outputBuffer) append(p []byte) {
	b.mu.Lock()
	b.buf.Write(p)
	b.mu.Unlock()
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *outputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// streamWriter receives chunks from the exec copy goroutine.
type streamWriter struct {
	buf     *outputBuffer
	stream  Stream
	onChunk ChunkFunc
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.buf.append(p)
	if w.onChunk != nil {
		w.onChunk(w.stream, p)
	}
	return len(p), nil
}
