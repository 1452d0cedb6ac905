package loader

import (
	"sync"
	"sync/atomic"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/source"
)

// TopCodeCache compiles single sources on demand and caches the result until
// the source's modification signal changes.
//
// Reads of up-to-date entries only take a read lock. Compilation is
// serialized per cache instance: while one source compiles, other misses
// wait, and duplicate concurrent compilations of the same source collapse
// into one.
type TopCodeCache struct {
	factory code.CompilerFactory

	compileMu sync.Mutex // held for the whole compile path

	mu      sync.RWMutex // guards parent and entries
	parent  code.ClassLoader
	entries map[string]*code.SingleSourceCode

	compilations atomic.Uint64
}

// NewTopCodeCache creates an empty cache compiling with factory against parent.
func NewTopCodeCache(parent code.ClassLoader, factory code.CompilerFactory) *TopCodeCache {
	return &TopCodeCache{
		factory: factory,
		parent:  parent,
		entries: make(map[string]*code.SingleSourceCode),
	}
}

// UpToDateCode returns the cached code for src if it was compiled at src's
// current modification signal, compiling it otherwise. Compile failures are
// returned as *code.CompileError and leave any previous entry in place.
func (tc *TopCodeCache) UpToDateCode(src source.Source) (*code.SingleSourceCode, error) {
	if c := tc.upToDate(src); c != nil {
		return c, nil
	}

	tc.compileMu.Lock()
	defer tc.compileMu.Unlock()

	if c := tc.upToDate(src); c != nil {
		return c, nil
	}

	tc.mu.RLock()
	parent := tc.parent
	tc.mu.RUnlock()

	c, err := code.CompileSource(parent, tc.factory, src)
	if err != nil {
		log.Infof("compiling %s failed: %v", src.ID(), err)
		return nil, err
	}
	tc.compilations.Add(1)

	tc.mu.Lock()
	tc.entries[src.ID()] = c
	tc.mu.Unlock()

	log.Debugf("compiled %s into top code cache", src.ID())
	return c, nil
}

func (tc *TopCodeCache) upToDate(src source.Source) *code.SingleSourceCode {
	tc.mu.RLock()
	c, ok := tc.entries[src.ID()]
	tc.mu.RUnlock()
	if !ok {
		return nil
	}
	if c.Info().LastModifiedAtCompileTime() != src.LastModified() {
		return nil
	}
	return c
}

// entry returns the cached code for a source ID, stale or not.
func (tc *TopCodeCache) entry(id string) *code.SingleSourceCode {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.entries[id]
}

// Parent returns the loader compilations resolve classes through.
func (tc *TopCodeCache) Parent() code.ClassLoader {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.parent
}

// SetParent replaces the compile parent and clears the cache, since code
// compiled against another parent must not be served.
func (tc *TopCodeCache) SetParent(parent code.ClassLoader) {
	tc.compileMu.Lock()
	defer tc.compileMu.Unlock()

	tc.mu.Lock()
	tc.parent = parent
	clear(tc.entries)
	tc.mu.Unlock()
}

// Clone returns a cache with the same parent and compiler factory, seeded
// with a snapshot of the current entries. The two caches evolve
// independently afterwards.
func (tc *TopCodeCache) Clone() *TopCodeCache {
	return tc.cloneWithParent(tc.Parent())
}

// cloneWithParent is Clone with a different parent that must resolve the
// same classes as the current one, so the snapshot stays valid.
func (tc *TopCodeCache) cloneWithParent(parent code.ClassLoader) *TopCodeCache {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	c := NewTopCodeCache(parent, tc.factory)
	for id, e := range tc.entries {
		c.entries[id] = e
	}
	return c
}

// Len returns the number of cached entries.
func (tc *TopCodeCache) Len() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.entries)
}

// Compilations returns how many sources this cache has compiled.
func (tc *TopCodeCache) Compilations() uint64 {
	return tc.compilations.Load()
}
