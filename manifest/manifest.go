// Package manifest handles codelayers.toml project configuration.
//
// A manifest configures an engine and lists its code layers, bottom first:
//
//	[project]
//	name = "shop"
//
//	[engine]
//	load-mode = "current-first"
//	top-code-cache = true
//	update-interval = "2s"
//
//	[[layer]]
//	name = "lib"
//	dirs = ["lib"]
//
//	[[layer]]
//	name = "vendor"
//	code = "build/vendor.cbor"
//
// A layer is either compiled from the scripts found in its dirs or loaded
// from a precompiled code file written by WriteCode.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/engine"
	"github.com/chazu/codelayers/loader"
	"github.com/chazu/codelayers/source"
)

// FileName is the name of the manifest file.
const FileName = "codelayers.toml"

// DefaultExtensions are the script extensions scanned when a layer names
// none.
var DefaultExtensions = []string{"cl"}

// Manifest represents a codelayers.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Engine  Engine  `toml:"engine"`
	Layers  []Layer `toml:"layer"`

	// Dir is the directory containing the codelayers.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Engine configures the engine. Unset conflict checks are enabled.
type Engine struct {
	LoadMode            string `toml:"load-mode"`
	TopCodeCache        bool   `toml:"top-code-cache"`
	TopLoadMode         string `toml:"top-load-mode"`
	LayerConflictCheck  *bool  `toml:"layer-conflict-check"`
	ParentConflictCheck *bool  `toml:"parent-conflict-check"`
	UpdateInterval      string `toml:"update-interval"`
}

// Layer is one code layer.
type Layer struct {
	Name       string   `toml:"name"`
	Dirs       []string `toml:"dirs"`
	Extensions []string `toml:"extensions"`
	Code       string   `toml:"code"`
}

// Precompiled reports whether the layer is loaded from a code file.
func (l Layer) Precompiled() bool { return l.Code != "" }

// Load parses the codelayers.toml file in dir and checks it.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	for i := range m.Layers {
		if !m.Layers[i].Precompiled() && len(m.Layers[i].Extensions) == 0 {
			m.Layers[i].Extensions = DefaultExtensions
		}
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a codelayers.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	var result *multierror.Error
	if _, err := parseMode(m.Engine.LoadMode); err != nil {
		result = multierror.Append(result, fmt.Errorf("engine load-mode: %w", err))
	}
	if _, err := parseMode(m.Engine.TopLoadMode); err != nil {
		result = multierror.Append(result, fmt.Errorf("engine top-load-mode: %w", err))
	}
	if m.Engine.UpdateInterval != "" {
		if d, err := time.ParseDuration(m.Engine.UpdateInterval); err != nil {
			result = multierror.Append(result, fmt.Errorf("engine update-interval: %w", err))
		} else if d <= 0 {
			result = multierror.Append(result, fmt.Errorf("engine update-interval must be positive, got %s", d))
		}
	}

	seen := make(map[string]bool)
	for i, l := range m.Layers {
		if l.Name == "" {
			result = multierror.Append(result, fmt.Errorf("layer %d has no name", i))
		} else if seen[l.Name] {
			result = multierror.Append(result, fmt.Errorf("layer %q defined twice", l.Name))
		}
		seen[l.Name] = true

		switch {
		case l.Precompiled() && len(l.Dirs) > 0:
			result = multierror.Append(result, fmt.Errorf("layer %q has both code and dirs", l.Name))
		case !l.Precompiled() && len(l.Dirs) == 0:
			result = multierror.Append(result, fmt.Errorf("layer %q has neither code nor dirs", l.Name))
		}
	}
	return result.ErrorOrNil()
}

func parseMode(s string) (loader.LoadMode, error) {
	if s == "" {
		return 0, nil
	}
	return loader.ParseLoadMode(s)
}

// Path resolves a path relative to the manifest directory.
func (m *Manifest) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// EngineConfig returns the engine configuration. factory compiles sources
// for the top code cache and may be nil if it is disabled.
func (m *Manifest) EngineConfig(factory code.CompilerFactory) engine.Config {
	// Modes were checked by Load.
	mode, _ := parseMode(m.Engine.LoadMode)
	topMode, _ := parseMode(m.Engine.TopLoadMode)
	cfg := engine.Config{
		LoadMode:     mode,
		TopCodeCache: m.Engine.TopCodeCache,
		TopLoadMode:  topMode,
	}
	if m.Engine.TopCodeCache {
		cfg.TopCompilerFactory = factory
	}
	if c := m.Engine.LayerConflictCheck; c != nil {
		cfg.DisableLayerConflictCheck = !*c
	}
	if c := m.Engine.ParentConflictCheck; c != nil {
		cfg.DisableParentConflictCheck = !*c
	}
	return cfg
}

// UpdateInterval returns the configured updater interval, or 0 if unset.
func (m *Manifest) UpdateInterval() time.Duration {
	d, _ := time.ParseDuration(m.Engine.UpdateInterval)
	return d
}

// Precompiled reports whether every layer is loaded from a code file.
func (m *Manifest) Precompiled() bool {
	for _, l := range m.Layers {
		if !l.Precompiled() {
			return false
		}
	}
	return true
}

var errPrecompiledLayer = errors.New("layer is precompiled")

// SourcesLayers scans the directories of every layer and returns them as
// source layers compiled with factory. It fails if a layer is precompiled.
func (m *Manifest) SourcesLayers(factory code.CompilerFactory) ([]*code.Sources, error) {
	layers := make([]*code.Sources, 0, len(m.Layers))
	for _, l := range m.Layers {
		if l.Precompiled() {
			return nil, fmt.Errorf("%w: %s", errPrecompiledLayer, l.Name)
		}
		var srcs []source.Source
		for _, d := range l.Dirs {
			files, err := source.ScanDir(m.Path(d), l.Extensions)
			if err != nil {
				return nil, fmt.Errorf("layer %s: %w", l.Name, err)
			}
			for _, f := range files {
				srcs = append(srcs, f)
			}
		}
		layers = append(layers, code.NewSources(l.Name, factory, srcs...))
	}
	return layers, nil
}

// Provider returns a LayerProvider rescanning the layers on every call.
func (m *Manifest) Provider(factory code.CompilerFactory) engine.LayerProvider {
	return func() ([]*code.Sources, error) {
		return m.SourcesLayers(factory)
	}
}

// CodeLayers reads the code file of every layer. It fails if a layer is
// not precompiled. A nil resolve means ResolveFile.
func (m *Manifest) CodeLayers(resolve code.SourceResolver) ([]*code.Code, error) {
	if resolve == nil {
		resolve = ResolveFile
	}
	layers := make([]*code.Code, 0, len(m.Layers))
	for _, l := range m.Layers {
		if !l.Precompiled() {
			return nil, fmt.Errorf("layer %s is not precompiled", l.Name)
		}
		c, err := ReadCode(m.Path(l.Code), resolve)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name, err)
		}
		if c.SourcesName() != l.Name {
			log.Warningf("layer %s: code file was compiled as %q", l.Name, c.SourcesName())
		}
		layers = append(layers, c)
	}
	return layers, nil
}

// Apply sets the layers of e from the manifest, compiling source layers
// with factory.
func (m *Manifest) Apply(e *engine.Engine, factory code.CompilerFactory) error {
	if m.Precompiled() {
		layers, err := m.CodeLayers(nil)
		if err != nil {
			return err
		}
		return e.SetCodeLayers(layers)
	}
	layers, err := m.SourcesLayers(factory)
	if err != nil {
		return err
	}
	return e.SetCodeLayersBySource(layers)
}
