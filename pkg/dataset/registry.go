package dataset

import (
	"context"
	"sync"
	"time"
)

// Registry holds the current snapshot and swaps in a fresh one on reload.
// Callers that kept a previous snapshot keep reading it unchanged.
type Registry struct {
	mu      sync.RWMutex
	snap    *Snapshot
	loader  Loader
	hooks   []func(*Snapshot)
	started uint64
	swapped uint64
}

// NewRegistry creates a registry backed by loader. Current returns an empty
// snapshot until Load is called.
func NewRegistry(loader Loader) *Registry {
	return &Registry{
		snap:   NewSnapshot(nil, nil, time.Time{}),
		loader: loader,
	}
}

// OnLoad registers fn to run after every successful swap.
func (r *Registry) OnLoad(fn func(*Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Load fetches every collection and makes the result current. Loads may
// overlap: a load only replaces the snapshot if no load that started after
// it has already swapped. Load returns the snapshot current when it ends.
func (r *Registry) Load(ctx context.Context) *Snapshot {
	r.mu.Lock()
	r.started++
	seq := r.started
	r.mu.Unlock()

	snap := LoadSnapshot(ctx, r.loader)

	r.mu.Lock()
	if seq < r.swapped {
		cur := r.snap
		r.mu.Unlock()
		return cur
	}
	r.snap = snap
	r.swapped = seq
	hooks := append([]func(*Snapshot){}, r.hooks...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(snap)
	}
	return snap
}

// Reload is Load under the name the server's SIGHUP handler uses.
func (r *Registry) Reload(ctx context.Context) *Snapshot {
	return r.Load(ctx)
}

// Current returns the snapshot in use.
func (r *Registry) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}
