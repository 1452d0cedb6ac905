// Package meta stores runtime metadata per class, such as class variables
// and cached method tables, outside of the class itself.
//
// Entries are keyed by *code.Class and hold it strongly, so a class with
// metadata stays reachable until its entry is released. Engines release
// entries of the classes they defined when they are closed; hosts that put
// metadata into a Registry other than Default must pass its Releaser to the
// engine.
package meta

import (
	"sync"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/loader"
)

// Default is the process-wide registry.
var Default = NewRegistry()

// Registry maps classes to named metadata values.
type Registry struct {
	mu      sync.RWMutex
	entries map[*code.Class]map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[*code.Class]map[string]any)}
}

// Put stores a metadata value for c.
func (r *Registry) Put(c *code.Class, name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	values, ok := r.entries[c]
	if !ok {
		values = make(map[string]any)
		r.entries[c] = values
	}
	values[name] = value
}

// Get returns a metadata value of c.
func (r *Registry) Get(c *code.Class, name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[c][name]
	return v, ok
}

// Has reports whether c has any metadata.
func (r *Registry) Has(c *code.Class) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[c]
	return ok
}

// Len returns the number of classes with metadata.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Release drops all metadata of c. Releasing a class without metadata is
// a no-op.
func (r *Registry) Release(c *code.Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, c)
	return nil
}

// Releaser adapts the registry to loader.ClassReleaser.
func (r *Registry) Releaser() loader.ClassReleaser {
	return loader.ReleaserFunc(r.Release)
}
