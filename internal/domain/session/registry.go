package session

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps session IDs to sessions and tracks the current session.
// All operations are atomic with respect to each other. The registry holds
// the only references to live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	current  string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Put registers a session. IDs are never reused while present.
func (r *Registry) Put(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("session already registered: %s", s.ID)
	}
	r.sessions[s.ID] = s
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Claim moves a live session into StateStopping and returns it. Only the
// first caller for a given session succeeds; later callers, and callers for
// unknown ids, get false. The session stays registered until Remove.
func (r *Registry) Claim(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) &&
		!s.state.CompareAndSwap(int32(StateLaunched), int32(StateStopping)) {
		return nil, false
	}
	return s, true
}

// Remove deletes id, clearing current if it pointed at id. When then is
// non-nil it runs under the registry lock after the delete, so no reader can
// observe the session between removal and whatever then publishes.
func (r *Registry) Remove(id string, then func(*Session)) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	if r.current == id {
		r.current = ""
	}
	s.setState(StateTerminated)
	if then != nil {
		then(s)
	}
	return s, true
}

// Snapshot returns session infos and the current id from a single point in time.
func (r *Registry) Snapshot() ([]SessionInfo, string) {
	r.mu.RLock()
	current := r.current
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		info := s.Info()
		info.Current = s.ID == current
		infos = append(infos, info)
	}
	return infos, current
}

// SetCurrent marks id as current. Unknown ids are ignored.
func (r *Registry) SetCurrent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	r.current = id
	return true
}

// Current returns the current session id, if any.
func (r *Registry) Current() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.current != ""
}

// Drain removes and returns every session and clears current.
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	r.current = ""
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
