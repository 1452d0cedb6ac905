package loader

import (
	"sync"
	"weak"
)

// Registry tracks every BytecodeClassLoader created on behalf of an owner
// (typically an engine) through weak pointers, so that the owner can release
// their classes later without keeping stale generations alive.
type Registry struct {
	mu      sync.Mutex
	refs    []weak.Pointer[BytecodeClassLoader]
	sweepAt int
}

const minSweepAt = 64

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sweepAt: minSweepAt}
}

// Track adds a loader. Collected loaders are swept out once the registry
// has doubled in size since the last sweep.
func (r *Registry) Track(l *BytecodeClassLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, weak.Make(l))
	if len(r.refs) >= r.sweepAt {
		r.sweepLocked()
		r.sweepAt = max(minSweepAt, 2*len(r.refs))
	}
}

// Live returns the tracked loaders that have not been collected.
func (r *Registry) Live() []*BytecodeClassLoader {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := make([]*BytecodeClassLoader, 0, len(r.refs))
	for _, ref := range r.refs {
		if l := ref.Value(); l != nil {
			live = append(live, l)
		}
	}
	return live
}

// Sweep drops collected loaders and returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

func (r *Registry) sweepLocked() int {
	kept := r.refs[:0]
	for _, ref := range r.refs {
		if ref.Value() != nil {
			kept = append(kept, ref)
		}
	}
	removed := len(r.refs) - len(kept)
	clear(r.refs[len(kept):])
	r.refs = kept
	return removed
}

// Len returns the number of tracked entries, including collected ones not
// yet swept.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs)
}

// ReleaseClasses releases the classes of every live tracked loader.
func (r *Registry) ReleaseClasses(releaser ClassReleaser) {
	for _, l := range r.Live() {
		l.ReleaseClasses(releaser)
	}
}
