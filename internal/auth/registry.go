package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/session"
)

type registryEntry struct {
	gate     *Gate
	lastSeen time.Time
}

// Registry keeps a single Gate per scope so concurrent requests and live
// channels of one browser session share the same state.
type Registry struct {
	store  session.Store
	shared bool
	now    func() time.Time

	mu    sync.Mutex
	gates map[string]*registryEntry
}

// NewRegistry is for a store owned by this process alone.
func NewRegistry(store session.Store) *Registry {
	return &Registry{store: store, now: time.Now, gates: make(map[string]*registryEntry)}
}

// NewSharedRegistry is for a store other instances write to as well. Every
// Gate lookup re-reads the scope so a login or logout made elsewhere is seen
// by the next request here.
func NewSharedRegistry(store session.Store) *Registry {
	r := NewRegistry(store)
	r.shared = true
	return r
}

func (r *Registry) Gate(ctx context.Context, scope string) *Gate {
	r.mu.Lock()
	entry, ok := r.gates[scope]
	if ok {
		entry.lastSeen = r.now()
	}
	r.mu.Unlock()
	if ok {
		if r.shared {
			_ = entry.gate.Refresh(ctx)
		}
		return entry.gate
	}

	// Rehydration reads the store, so it runs outside the lock.
	gate := NewGate(ctx, r.store, scope)

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.gates[scope]; ok {
		entry.lastSeen = r.now()
		return entry.gate
	}
	r.gates[scope] = &registryEntry{gate: gate, lastSeen: r.now()}
	return gate
}

// Sweep drops gates idle since idleBefore that have no subscribers. The
// persisted values stay; a later request rehydrates a fresh gate.
func (r *Registry) Sweep(idleBefore time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for scope, entry := range r.gates {
		if entry.lastSeen.Before(idleBefore) && !entry.gate.subscribed() {
			delete(r.gates, scope)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}
