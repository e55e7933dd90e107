package negotiation

import "sync"

// Registry tracks sessions by ID. Active sessions hold a live
// coordinator; terminal sessions are retained read-only so callers can
// inspect outcomes and the gap manager can annotate parents.
type Registry struct {
	mu       sync.RWMutex
	active   map[string]*Coordinator
	terminal map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active:   make(map[string]*Coordinator),
		terminal: make(map[string]*Session),
	}
}

func (r *Registry) register(c *Coordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[c.session.ID] = c
}

// moveToTerminal retires a finished session from the active set.
func (r *Registry) moveToTerminal(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, s.ID)
	r.terminal[s.ID] = s
}

func (r *Registry) coordinator(id string) (*Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.active[id]
	return c, ok
}

// session finds a session in either set.
func (r *Registry) session(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.active[id]; ok {
		return c.session, true
	}
	s, ok := r.terminal[id]
	return s, ok
}

// activeCoordinators snapshots the active set for the checker sweep.
func (r *Registry) activeCoordinators() []*Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Coordinator, 0, len(r.active))
	for _, c := range r.active {
		out = append(out, c)
	}
	return out
}

// ActiveCount reports how many sessions have not yet terminated.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}
