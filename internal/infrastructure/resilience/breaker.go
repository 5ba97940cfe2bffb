package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the number of trial calls admitted while half-open, and
	// the number of consecutive successes that close the breaker again.
	MaxRequests uint32
	// Interval clears the counts periodically while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before a trial.
	Timeout time.Duration
	// ReadyToTrip decides, after a failure while closed, whether to open.
	ReadyToTrip func(counts Counts) bool
	// IsSuccessful classifies a call's error. The default counts nil and
	// caller cancellation as success, since neither says anything about the
	// remote side.
	IsSuccessful func(err error) bool
	// OnStateChange runs after a transition, outside the breaker lock.
	OnStateChange func(name string, from State, to State)
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Counts holds the statistics for the current generation
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

type transition struct {
	from, to State
}

// New creates a circuit breaker, filling in defaults for unset settings
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval <= 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		}
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		expiry:   settings.Clock().Add(settings.Interval),
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, applying any due timeout transition
func (b *Breaker) State() State {
	b.mu.Lock()
	state, _, changed := b.currentState(b.settings.Clock())
	b.mu.Unlock()

	b.notify(changed)
	return state
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn through the breaker. A rejected call returns ErrCircuitOpen or
// ErrTooManyRequests without invoking fn.
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	generation, err := b.beforeRequest()
	if err != nil {
		return zero, err
	}

	done := false
	defer func() {
		if !done {
			b.afterRequest(generation, false)
		}
	}()

	result, err := fn(ctx)
	done = true
	b.afterRequest(generation, b.settings.IsSuccessful(err))
	return result, err
}

func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	state, generation, changed := b.currentState(b.settings.Clock())

	var err error
	switch {
	case state == StateOpen:
		err = ErrCircuitOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		err = ErrTooManyRequests
	default:
		b.counts.Requests++
	}
	b.mu.Unlock()

	b.notify(changed)
	return generation, err
}

func (b *Breaker) afterRequest(before uint64, success bool) {
	b.mu.Lock()
	now := b.settings.Clock()
	state, generation, changed := b.currentState(now)

	if generation == before {
		if success {
			changed = append(changed, b.onSuccess(state, now)...)
		} else {
			changed = append(changed, b.onFailure(state, now)...)
		}
	}
	b.mu.Unlock()

	b.notify(changed)
}

func (b *Breaker) onSuccess(state State, now time.Time) []transition {
	b.counts.TotalSuccesses++
	b.counts.ConsecutiveSuccesses++
	b.counts.ConsecutiveFailures = 0
	if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
		return b.setState(StateClosed, now)
	}
	return nil
}

func (b *Breaker) onFailure(state State, now time.Time) []transition {
	switch state {
	case StateClosed:
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.settings.ReadyToTrip(b.counts) {
			return b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		return b.setState(StateOpen, now)
	}
	return nil
}

// currentState must be called with mu held.
func (b *Breaker) currentState(now time.Time) (State, uint64, []transition) {
	var changed []transition
	switch b.state {
	case StateClosed:
		if b.expiry.Before(now) {
			b.newGeneration(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			changed = b.setState(StateHalfOpen, now)
		}
	}
	return b.state, b.generation, changed
}

func (b *Breaker) setState(state State, now time.Time) []transition {
	if b.state == state {
		return nil
	}
	prev := b.state
	b.state = state
	b.newGeneration(now)
	return []transition{{from: prev, to: state}}
}

func (b *Breaker) newGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}

	switch b.state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}
}

func (b *Breaker) notify(changed []transition) {
	if b.settings.OnStateChange == nil {
		return
	}
	for _, t := range changed {
		b.settings.OnStateChange(b.name, t.from, t.to)
	}
}
