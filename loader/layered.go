package loader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/source"
	"github.com/hashicorp/go-multierror"
)

// Config configures a LayeredClassLoader.
type Config struct {
	// Parent is the loader below all layers. Nil means an empty
	// HostClassLoader.
	Parent code.ClassLoader

	// LoadMode is the precedence of the static layers. Default CurrentFirst.
	LoadMode LoadMode

	// TopCodeCache enables compiling sources not owned (or, in CurrentFirst
	// top mode, owned but stale) by a static layer on demand.
	TopCodeCache bool

	// TopLoadMode is the precedence between static layers and the top code
	// cache. Default ParentFirst.
	TopLoadMode LoadMode

	// TopCompilerFactory compiles sources for the top code cache. Required
	// if TopCodeCache is set.
	TopCompilerFactory code.CompilerFactory

	// Registry, if set, tracks every BytecodeClassLoader created.
	Registry *Registry
}

func (cfg Config) validate() error {
	var result *multierror.Error
	if cfg.LoadMode != 0 && !cfg.LoadMode.valid() {
		result = multierror.Append(result, fmt.Errorf("invalid load mode %v", cfg.LoadMode))
	}
	if cfg.TopLoadMode != 0 && !cfg.TopLoadMode.valid() {
		result = multierror.Append(result, fmt.Errorf("invalid top load mode %v", cfg.TopLoadMode))
	}
	if cfg.TopCodeCache && cfg.TopCompilerFactory == nil {
		result = multierror.Append(result, errors.New("top code cache requires a compiler factory"))
	}
	return result.ErrorOrNil()
}

// LayeredClassLoader stacks one BytecodeClassLoader per static code layer on
// top of a parent, optionally backed by a TopCodeCache. The static layers
// never change; a new set of layers means a new LayeredClassLoader.
type LayeredClassLoader struct {
	parent   code.ClassLoader
	mode     LoadMode
	topMode  LoadMode
	layers   []*code.Code
	static   []*BytecodeClassLoader
	chain    code.ClassLoader // innermost static loader, or parent
	topCache *TopCodeCache
	registry *Registry

	mu         sync.Mutex
	topLoaders map[string]*BytecodeClassLoader // by source ID
}

func newLayered(cfg Config) (*LayeredClassLoader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	parent := cfg.Parent
	if parent == nil {
		parent = NewHostClassLoader()
	}
	return &LayeredClassLoader{
		parent:     parent,
		mode:       cfg.LoadMode.or(CurrentFirst),
		topMode:    cfg.TopLoadMode.or(ParentFirst),
		chain:      parent,
		registry:   cfg.Registry,
		topLoaders: make(map[string]*BytecodeClassLoader),
	}, nil
}

// NewLayeredClassLoader builds a loader from already compiled layers. Layer
// 0 sits directly on the parent, each later layer on the one before.
func NewLayeredClassLoader(cfg Config, layers []*code.Code) (*LayeredClassLoader, error) {
	l, err := newLayered(cfg)
	if err != nil {
		return nil, err
	}
	for _, c := range layers {
		l.push(c)
	}
	l.finish(cfg)
	return l, nil
}

// NewLayeredClassLoaderFromSources compiles each layer with its own compiler
// factory and builds a loader from the results. Each layer is compiled
// against the chain built so far, so it sees earlier layers at compile time
// the same way it will at run time.
func NewLayeredClassLoaderFromSources(cfg Config, layers []*code.Sources) (*LayeredClassLoader, error) {
	l, err := newLayered(cfg)
	if err != nil {
		return nil, err
	}
	for _, s := range layers {
		c, err := code.Compile(l.chain, s)
		if err != nil {
			return nil, err
		}
		l.push(c)
	}
	l.finish(cfg)
	return l, nil
}

func (l *LayeredClassLoader) push(c *code.Code) {
	bl := NewBytecodeClassLoader(l.chain, l.mode, c)
	l.track(bl)
	l.layers = append(l.layers, c)
	l.static = append(l.static, bl)
	l.chain = bl
}

func (l *LayeredClassLoader) finish(cfg Config) {
	if cfg.TopCodeCache {
		l.topCache = NewTopCodeCache(l, cfg.TopCompilerFactory)
	}
	log.Debugf("built layered class loader with %d layers (%v, top cache %t, top %v)",
		len(l.layers), l.mode, l.topCache != nil, l.topMode)
}

func (l *LayeredClassLoader) track(bl *BytecodeClassLoader) {
	if l.registry != nil {
		l.registry.Track(bl)
	}
}

func (l *LayeredClassLoader) Parent() code.ClassLoader { return l.parent }
func (l *LayeredClassLoader) Mode() LoadMode           { return l.mode }
func (l *LayeredClassLoader) TopMode() LoadMode        { return l.topMode }

// TopCodeCache returns the top code cache, or nil if there is none.
func (l *LayeredClassLoader) TopCodeCache() *TopCodeCache { return l.topCache }

// Layers returns the static code layers, bottom first.
func (l *LayeredClassLoader) Layers() []*code.Code {
	out := make([]*code.Code, len(l.layers))
	copy(out, l.layers)
	return out
}

// LoadClass resolves name through the static layers and the parent.
// Classes compiled by the top code cache are only reachable by source.
func (l *LayeredClassLoader) LoadClass(name string) (*code.Class, error) {
	return l.chain.LoadClass(name)
}

// LoadMainClass loads the main class of src.
func (l *LayeredClassLoader) LoadMainClass(src source.Source) (*code.Class, error) {
	owner, err := l.loaderForSource(src)
	if err != nil {
		return nil, err
	}
	return owner.loadMainClass(src)
}

// LoadClassBySource loads the class called name compiled from src.
func (l *LayeredClassLoader) LoadClassBySource(src source.Source, name string) (*code.Class, error) {
	owner, err := l.loaderForSource(src)
	if err != nil {
		return nil, err
	}
	return owner.loadClassBySource(src, name)
}

// loaderForSource picks the loader to serve src from. A static owner wins
// if there is no top code cache, if the top mode is ParentFirst, or if the
// owner compiled src at its current modification signal. Otherwise src is
// served from the top code cache through a per-source loader, which is
// replaced whenever the cache holds recompiled code.
func (l *LayeredClassLoader) loaderForSource(src source.Source) (*BytecodeClassLoader, error) {
	owner := findOwner(l.chain, src)
	if l.topCache == nil {
		if owner == nil {
			return nil, sourceNotFound(src.ID())
		}
		return owner, nil
	}
	if owner != nil {
		if l.topMode == ParentFirst {
			return owner, nil
		}
		if lm, _ := owner.Code().LastModifiedAtCompileTime(src); lm == src.LastModified() {
			return owner, nil
		}
	}

	c, err := l.topCache.UpToDateCode(src)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Another load may have compiled newer code since c was obtained. Only
	// the cache's current entry gets a loader, so a slow caller never
	// replaces a loader with one over older code.
	if cur := l.topCache.entry(src.ID()); cur != nil {
		c = cur
	}
	bl := l.topLoaders[src.ID()]
	if bl != nil && bl.Code() == c.Code {
		return bl, nil
	}
	bl = NewBytecodeClassLoader(l, l.topMode, c.Code)
	l.track(bl)
	l.topLoaders[src.ID()] = bl
	return bl, nil
}

// FindBytecodeClassLoaderBySource locates the static owner of src, asking
// the parent first in ParentFirst mode and last in CurrentFirst mode.
func (l *LayeredClassLoader) FindBytecodeClassLoaderBySource(src source.Source) *BytecodeClassLoader {
	if l.mode == ParentFirst {
		if owner := findOwner(l.parent, src); owner != nil {
			return owner
		}
		return findOwner(l.chain, src)
	}
	if owner := findOwner(l.chain, src); owner != nil {
		return owner
	}
	return findOwner(l.parent, src)
}

// CloneWithSeparateTopCodeCache returns a loader sharing this loader's
// static layers with its own top code cache, seeded with a snapshot of this
// one's. Per-source loaders are not shared.
func (l *LayeredClassLoader) CloneWithSeparateTopCodeCache() *LayeredClassLoader {
	c := &LayeredClassLoader{
		parent:     l.parent,
		mode:       l.mode,
		topMode:    l.topMode,
		layers:     l.layers,
		static:     l.static,
		chain:      l.chain,
		registry:   l.registry,
		topLoaders: make(map[string]*BytecodeClassLoader),
	}
	if l.topCache != nil {
		c.topCache = l.topCache.cloneWithParent(c)
	}
	return c
}

// BytecodeClassLoaders returns the static loaders, bottom first, followed by
// the current per-source top loaders.
func (l *LayeredClassLoader) BytecodeClassLoaders() []*BytecodeClassLoader {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*BytecodeClassLoader, 0, len(l.static)+len(l.topLoaders))
	out = append(out, l.static...)
	for _, bl := range l.topLoaders {
		out = append(out, bl)
	}
	return out
}

// ReleaseClasses releases the classes of every loader returned by
// BytecodeClassLoaders.
func (l *LayeredClassLoader) ReleaseClasses(r ClassReleaser) {
	for _, bl := range l.BytecodeClassLoaders() {
		bl.ReleaseClasses(r)
	}
}
