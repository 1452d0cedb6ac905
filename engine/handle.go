package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/codelayers/loader"
)

// Loader is a handle a caller loads classes through. It is only valid with
// the engine that issued it.
type Loader struct {
	engineID uuid.UUID
	number   uint64
	attached bool
	pinned   *loader.LayeredClassLoader
}

func (l *Loader) EngineID() uuid.UUID { return l.engineID }

// Number is unique among the loaders of one engine.
func (l *Loader) Number() uint64 { return l.number }

func (l *Loader) IsAttached() bool { return l.attached }

func (l *Loader) String() string {
	kind := "detached"
	if l.attached {
		kind = "attached"
	}
	return fmt.Sprintf("%s loader %d of engine %s", kind, l.number, l.engineID)
}
