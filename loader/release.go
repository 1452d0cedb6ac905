package loader

import "github.com/chazu/codelayers/code"

// ClassReleaser drops whatever runtime metadata keeps a class reachable.
// It is called at most once per class, on a best-effort basis; errors and
// panics are logged and otherwise ignored.
type ClassReleaser interface {
	Release(c *code.Class) error
}

// ReleaserFunc adapts a function to ClassReleaser.
type ReleaserFunc func(c *code.Class) error

func (f ReleaserFunc) Release(c *code.Class) error { return f(c) }

// NoopReleaser releases nothing.
var NoopReleaser ClassReleaser = ReleaserFunc(func(*code.Class) error { return nil })

func releaseOne(r ClassReleaser, c *code.Class) {
	defer func() {
		if p := recover(); p != nil {
			log.Warningf("releasing %s panicked: %v", c.Name(), p)
		}
	}()
	if err := r.Release(c); err != nil {
		log.Debugf("releasing %s failed: %v", c.Name(), err)
	}
}
