package engine

import (
	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/loader"
)

// Config configures an Engine.
type Config struct {
	// Parent is the loader below all layers, shared by every generation.
	// Nil means an empty loader.HostClassLoader.
	Parent code.ClassLoader

	// LoadMode is the precedence of the static layers. Default CurrentFirst.
	LoadMode loader.LoadMode

	// TopCodeCache enables compiling sources on demand.
	TopCodeCache bool

	// TopLoadMode is the precedence between static layers and the top code
	// cache. Default ParentFirst.
	TopLoadMode loader.LoadMode

	// TopCompilerFactory compiles sources for the top code cache.
	TopCompilerFactory code.CompilerFactory

	// DisableLayerConflictCheck allows two layers to define the same class.
	DisableLayerConflictCheck bool

	// DisableParentConflictCheck allows a layer to define a class the parent
	// already exposes.
	DisableParentConflictCheck bool

	// Releaser releases class metadata on Close. Default
	// meta.Default.Releaser(). The engine itself stores nothing in
	// meta.Default, so the default only releases what the host put there.
	Releaser loader.ClassReleaser
}

func (cfg Config) layered(registry *loader.Registry) loader.Config {
	return loader.Config{
		Parent:             cfg.Parent,
		LoadMode:           cfg.LoadMode,
		TopCodeCache:       cfg.TopCodeCache,
		TopLoadMode:        cfg.TopLoadMode,
		TopCompilerFactory: cfg.TopCompilerFactory,
		Registry:           registry,
	}
}

// Builder assembles a Config and builds one Engine from it. A Builder can
// only be built once: setters called afterwards panic with ErrBuilderUsed
// and a second Build returns it.
type Builder struct {
	cfg  Config
	used bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) check() {
	if b.used {
		panic(ErrBuilderUsed)
	}
}

func (b *Builder) WithParent(parent code.ClassLoader) *Builder {
	b.check()
	b.cfg.Parent = parent
	return b
}

func (b *Builder) WithLoadMode(mode loader.LoadMode) *Builder {
	b.check()
	b.cfg.LoadMode = mode
	return b
}

// WithTopCodeCache enables the top code cache with the given factory.
func (b *Builder) WithTopCodeCache(factory code.CompilerFactory) *Builder {
	b.check()
	b.cfg.TopCodeCache = true
	b.cfg.TopCompilerFactory = factory
	return b
}

func (b *Builder) WithTopLoadMode(mode loader.LoadMode) *Builder {
	b.check()
	b.cfg.TopLoadMode = mode
	return b
}

func (b *Builder) WithLayerConflictCheck(enabled bool) *Builder {
	b.check()
	b.cfg.DisableLayerConflictCheck = !enabled
	return b
}

func (b *Builder) WithParentConflictCheck(enabled bool) *Builder {
	b.check()
	b.cfg.DisableParentConflictCheck = !enabled
	return b
}

func (b *Builder) WithReleaser(r loader.ClassReleaser) *Builder {
	b.check()
	b.cfg.Releaser = r
	return b
}

// WithConfig replaces everything set so far.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.check()
	b.cfg = cfg
	return b
}

// Build creates the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.used {
		return nil, ErrBuilderUsed
	}
	b.used = true
	return New(b.cfg)
}
