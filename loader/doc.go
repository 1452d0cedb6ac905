// Package loader defines classes from compiled Code and stacks the resulting
// class loaders into layers.
//
// This package contains:
//   - BytecodeClassLoader: defines the classes of one Code at most once each
//   - HostClassLoader: a root loader for classes supplied by the host
//   - TopCodeCache: compiles single sources on demand, keyed on staleness
//   - LayeredClassLoader: static code layers over a parent, optionally backed
//     by a TopCodeCache, with current-first or parent-first precedence
//   - Registry: weak tracking of every loader created, for releasing classes
//
// Precedence between loaders is decided by LoadMode. Every loader that owns
// compiled sources implements SourceClassLoader, so the owner of a source
// can be located by walking the chain in the same order classes are loaded.
package loader

import "github.com/tliron/commonlog"

var log = commonlog.GetLogger("codelayers.loader")
