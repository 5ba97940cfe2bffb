package session

import (
	"context"
	"sync"
)

// Broker delivers each session's CompletionResult at most once. A slot is
// opened at launch and closed by the first Publish; waiters blocked in Await
// all observe that single result. Publishing with no waiter drops the result.
type Broker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	done      chan struct{}
	result    CompletionResult
	discarded bool
	waiters   int
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		slots: make(map[string]*slot),
	}
}

// Open creates the slot for id. Opening an existing slot is a no-op.
func (b *Broker) Open(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.slots[id]; !ok {
		b.slots[id] = &slot{done: make(chan struct{})}
	}
}

// Await blocks until a result is published for id or ctx is done. It fails
// with ErrSessionNotFound when id has no open slot at call time.
func (b *Broker) Await(ctx context.Context, id string) (CompletionResult, error) {
	w, err := b.Subscribe(id)
	if err != nil {
		return CompletionResult{}, err
	}
	return w.Wait(ctx)
}

// Subscribe registers a waiter for id without blocking, so a result
// published before the caller gets around to waiting is still delivered.
// The Waiter must be consumed by Wait or released by Cancel.
func (b *Broker) Subscribe(id string) (*Waiter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sl, ok := b.slots[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sl.waiters++
	return &Waiter{broker: b, slot: sl}, nil
}

// Waiter is a registered interest in one session's result.
type Waiter struct {
	broker *Broker
	slot   *slot
	once   sync.Once
}

// Wait blocks until the result is published or ctx is done. On ctx
// cancellation the registration is released and the session is unaffected.
func (w *Waiter) Wait(ctx context.Context) (CompletionResult, error) {
	select {
	case <-w.slot.done:
		if w.slot.discarded {
			return CompletionResult{}, ErrSessionNotFound
		}
		return w.slot.result, nil
	case <-ctx.Done():
		w.Cancel()
		return CompletionResult{}, ctx.Err()
	}
}

// Cancel releases the registration. It is safe to call more than once.
func (w *Waiter) Cancel() {
	w.once.Do(func() {
		w.broker.mu.Lock()
		defer w.broker.mu.Unlock()
		select {
		case <-w.slot.done:
		default:
			w.slot.waiters--
		}
	})
}

// Publish fills and closes the slot for id. It returns whether any waiter
// was registered. A second Publish for the same id is a no-op.
func (b *Broker) Publish(id string, result CompletionResult) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sl, ok := b.slots[id]
	if !ok {
		return false
	}
	delete(b.slots, id)
	sl.result = result
	close(sl.done)
	return sl.waiters > 0
}

// Discard closes the slot for id without a result. Pending waiters fail with
// ErrSessionNotFound. Used when a launch is rolled back.
func (b *Broker) Discard(id string) {
	b.mu.Lock()
	sl, ok := b.slots[id]
	if ok {
		delete(b.slots, id)
	}
	b.mu.Unlock()
	if ok {
		sl.discarded = true
		close(sl.done)
	}
}

// Waiting returns the number of callers blocked on id.
func (b *Broker) Waiting(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sl, ok := b.slots[id]; ok {
		return sl.waiters
	}
	return 0
}
