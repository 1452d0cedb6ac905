package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/loader"
	"github.com/chazu/codelayers/meta"
	"github.com/chazu/codelayers/source"
	"github.com/google/uuid"
)

// Engine loads classes from layers of compiled code. It is safe for
// concurrent use.
type Engine struct {
	id       uuid.UUID
	cfg      Config
	registry *loader.Registry

	current    atomic.Pointer[loader.LayeredClassLoader]
	generation atomic.Uint64
	swapMu     sync.Mutex

	loaders atomic.Uint64

	// Loads hold lifeMu for reading, Close for writing, so every class a
	// successful load defines is released by Close.
	lifeMu sync.RWMutex
	closed atomic.Bool
}

// New creates an engine with no code layers.
func New(cfg Config) (*Engine, error) {
	if cfg.Parent == nil {
		cfg.Parent = loader.NewHostClassLoader()
	}
	if cfg.Releaser == nil {
		cfg.Releaser = meta.Default.Releaser()
	}
	e := &Engine{
		id:       uuid.New(),
		cfg:      cfg,
		registry: loader.NewRegistry(),
	}
	initial, err := loader.NewLayeredClassLoader(cfg.layered(e.registry), nil)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	e.current.Store(initial)
	log.Infof("engine %s created (%v, top cache %t)", e.id, initial.Mode(), cfg.TopCodeCache)
	return e, nil
}

// ID returns the identity embedded in every Loader the engine issues.
func (e *Engine) ID() uuid.UUID { return e.id }

// Generation returns how many times the code layers were replaced.
func (e *Engine) Generation() uint64 { return e.generation.Load() }

// Layers returns the code layers of the current generation, bottom first.
func (e *Engine) Layers() []*code.Code { return e.current.Load().Layers() }

// Parent returns the loader below all layers.
func (e *Engine) Parent() code.ClassLoader { return e.cfg.Parent }

// SetCodeLayers replaces the code layers with precompiled ones. On error
// the current layers stay in effect.
func (e *Engine) SetCodeLayers(layers []*code.Code) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := e.checkConflicts(layers); err != nil {
		return err
	}
	next, err := loader.NewLayeredClassLoader(e.cfg.layered(e.registry), layers)
	if err != nil {
		return err
	}
	return e.publish(next)
}

// SetCodeLayersBySource compiles each layer against the layers below it and
// replaces the code layers with the results. On error the current layers
// stay in effect.
func (e *Engine) SetCodeLayersBySource(layers []*code.Sources) error {
	if e.closed.Load() {
		return ErrClosed
	}
	next, err := loader.NewLayeredClassLoaderFromSources(e.cfg.layered(e.registry), layers)
	if err != nil {
		return err
	}
	if err := e.checkConflicts(next.Layers()); err != nil {
		return err
	}
	return e.publish(next)
}

func (e *Engine) checkConflicts(layers []*code.Code) error {
	var conflicts []code.Conflict
	if !e.cfg.DisableLayerConflictCheck {
		conflicts = append(conflicts, code.ConflictsBetweenLayers(layers)...)
	}
	if !e.cfg.DisableParentConflictCheck {
		conflicts = append(conflicts, code.ConflictsWithParent(e.cfg.Parent, layers)...)
	}
	if len(conflicts) == 0 {
		return nil
	}
	return &ClassNameConflictError{Conflicts: conflicts}
}

func (e *Engine) publish(next *loader.LayeredClassLoader) error {
	e.swapMu.Lock()
	defer e.swapMu.Unlock()
	if e.closed.Load() {
		return ErrClosed
	}
	e.current.Store(next)
	gen := e.generation.Add(1)
	log.Infof("engine %s: generation %d with %d layers", e.id, gen, len(next.Layers()))
	return nil
}

// NewAttachedLoader returns a Loader that follows future layer updates.
func (e *Engine) NewAttachedLoader() *Loader {
	return &Loader{
		engineID: e.id,
		number:   e.loaders.Add(1),
		attached: true,
	}
}

// NewDetachedLoader returns a Loader pinned to the current layers. It gets
// its own top code cache, seeded with the current one's entries.
func (e *Engine) NewDetachedLoader() *Loader {
	return &Loader{
		engineID: e.id,
		number:   e.loaders.Add(1),
		pinned:   e.current.Load().CloneWithSeparateTopCodeCache(),
	}
}

func (e *Engine) resolve(l *Loader) (*loader.LayeredClassLoader, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if l == nil {
		return nil, fmt.Errorf("%w: nil loader", ErrEngineMismatch)
	}
	if l.engineID != e.id {
		return nil, fmt.Errorf("%w: %s used with engine %s", ErrEngineMismatch, l, e.id)
	}
	if l.attached {
		return e.current.Load(), nil
	}
	return l.pinned, nil
}

func (e *Engine) load(l *Loader, fn func(*loader.LayeredClassLoader) (*code.Class, error)) (*code.Class, error) {
	e.lifeMu.RLock()
	defer e.lifeMu.RUnlock()
	ll, err := e.resolve(l)
	if err != nil {
		return nil, err
	}
	return fn(ll)
}

// LoadMainClass loads the main class of src.
func (e *Engine) LoadMainClass(l *Loader, src source.Source) (*code.Class, error) {
	return e.load(l, func(ll *loader.LayeredClassLoader) (*code.Class, error) {
		return ll.LoadMainClass(src)
	})
}

// LoadClass loads the class called name compiled from src.
func (e *Engine) LoadClass(l *Loader, src source.Source, name string) (*code.Class, error) {
	return e.load(l, func(ll *loader.LayeredClassLoader) (*code.Class, error) {
		return ll.LoadClassBySource(src, name)
	})
}

// LoadClassByName loads a class by name through the static layers and the
// parent. Classes only the top code cache compiled are not found this way.
func (e *Engine) LoadClassByName(l *Loader, name string) (*code.Class, error) {
	return e.load(l, func(ll *loader.LayeredClassLoader) (*code.Class, error) {
		return ll.LoadClass(name)
	})
}

// Close waits for loads in progress, then releases the classes of every
// loader the engine created that is still reachable. Loaders fail with
// ErrClosed afterwards. Closing twice is a no-op.
func (e *Engine) Close() error {
	e.swapMu.Lock()
	defer e.swapMu.Unlock()
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed.Swap(true) {
		return nil
	}
	live := e.registry.Live()
	for _, bl := range live {
		bl.ReleaseClasses(e.cfg.Releaser)
	}
	log.Infof("engine %s closed, released classes of %d loaders", e.id, len(live))
	return nil
}
