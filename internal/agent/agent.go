// Package agent defines agent profiles and the read-only pool the
// negotiation core selects candidates from.
//
// The pool is populated once at startup (by the transport or embedding
// application) and never mutated by a running negotiation: sessions read
// profiles, they do not write them.
package agent

import (
	"sort"
	"sync"
)

// Profile describes a member of the agent pool.
// Keywords are opaque values supplied alongside the profile; the core
// never derives them from text.
type Profile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Keywords     []string `json:"keywords"`
}

// Pool is the registry of known agents. It is safe for concurrent use;
// all methods are read paths except Add, which callers use during setup.
type Pool struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	order    []string // insertion order, for deterministic iteration
}

// NewPool creates an empty Pool.
func NewPool() *Pool {
	return &Pool{
		profiles: make(map[string]Profile),
	}
}

// Add registers a profile. Re-adding an existing ID replaces the profile
// but keeps its original position.
func (p *Pool) Add(profile Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.profiles[profile.ID]; !exists {
		p.order = append(p.order, profile.ID)
	}
	p.profiles[profile.ID] = profile
}

// Get returns the profile for an agent ID.
func (p *Pool) Get(id string) (Profile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, ok := p.profiles[id]
	return profile, ok
}

// All returns every profile in insertion order.
func (p *Pool) All() []Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Profile, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.profiles[id])
	}
	return out
}

// Size returns the number of registered agents.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.profiles)
}

// IDs returns all agent IDs, sorted for stable output.
func (p *Pool) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.profiles))
	for id := range p.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
