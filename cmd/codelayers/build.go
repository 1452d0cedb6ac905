package main

import (
	"fmt"
	"path/filepath"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/compiler"
	"github.com/chazu/codelayers/loader"
	"github.com/chazu/codelayers/manifest"
)

// handleBuildCommand processes the `codelayers build` subcommand.
// Usage:
//
//	codelayers build              # ./build/<layer>.cbor
//	codelayers build -o out       # custom output directory
func handleBuildCommand(m *manifest.Manifest, args []string) error {
	out := "build"
	for i := 0; i < len(args); i++ {
		if args[i] == "-o" || args[i] == "--output" {
			if i+1 >= len(args) {
				return fmt.Errorf("%w: -o requires an output directory", errUsage)
			}
			out = args[i+1]
			i++
		}
	}
	out = m.Path(out)

	layers, err := m.SourcesLayers(compiler.Factory)
	if err != nil {
		return err
	}
	// Layers compile against the ones below them, as in the engine.
	ll, err := loader.NewLayeredClassLoaderFromSources(loader.Config{}, layers)
	if err != nil {
		return err
	}
	if conflicts := code.ConflictsBetweenLayers(ll.Layers()); len(conflicts) > 0 {
		for _, c := range conflicts {
			warnColor.Printf("warning: %s\n", c)
		}
	}
	for _, c := range ll.Layers() {
		path := filepath.Join(out, c.SourcesName()+".cbor")
		if err := manifest.WriteCode(path, c); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("Wrote %s (%d classes)\n", path, len(c.ClassNames()))
	}
	return nil
}
