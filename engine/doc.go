// Package engine owns the lifecycle of a stack of code layers.
//
// An Engine publishes generations of loader.LayeredClassLoader. Each call to
// SetCodeLayers or SetCodeLayersBySource builds a new generation, checks it
// for class name conflicts and swaps it in as a whole; a failed call leaves
// the current generation in place.
//
// Callers load classes through Loader handles. An attached handle always
// resolves to the current generation at the time of use. A detached handle
// pins the generation current at its creation, with its own top code cache,
// and keeps resolving against it after later updates.
//
// Close releases the runtime metadata of every class defined by loaders the
// engine created, across all generations and detached handles still alive.
package engine

import "github.com/tliron/commonlog"

var log = commonlog.GetLogger("codelayers.engine")
