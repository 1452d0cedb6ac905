package loader

import (
	"errors"
	"sync"
	"weak"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/source"
)

// SourceClassLoader is a class loader that can locate the
// BytecodeClassLoader owning a compiled source, searching itself and its
// parents in load-mode order.
type SourceClassLoader interface {
	code.ClassLoader
	FindBytecodeClassLoaderBySource(src source.Source) *BytecodeClassLoader
}

// BytecodeClassLoader defines the classes of one Code on top of a parent
// loader. Each class, and each package, is defined at most once per loader
// instance, even under concurrent loads.
type BytecodeClassLoader struct {
	parent code.ClassLoader
	mode   LoadMode
	code   *code.Code

	mu       sync.Mutex // guards classes, packages and locks
	classes  map[string]*code.Class
	packages map[string]*code.Package
	locks    map[string]*nameLock

	defined classQueue
}

// nameLock serializes definition of one class or package. It is dropped
// from the loader's lock table once no goroutine holds or waits for it.
type nameLock struct {
	mu   sync.Mutex
	refs int
}

// classQueue records weak references to defined classes until drained.
type classQueue struct {
	mu   sync.Mutex
	refs []weak.Pointer[code.Class]
}

func (q *classQueue) push(c *code.Class) {
	q.mu.Lock()
	q.refs = append(q.refs, weak.Make(c))
	q.mu.Unlock()
}

func (q *classQueue) drain() []weak.Pointer[code.Class] {
	q.mu.Lock()
	refs := q.refs
	q.refs = nil
	q.mu.Unlock()
	return refs
}

// NewBytecodeClassLoader creates a loader for c over parent. A nil parent
// means no classes are visible besides those of c.
func NewBytecodeClassLoader(parent code.ClassLoader, mode LoadMode, c *code.Code) *BytecodeClassLoader {
	return &BytecodeClassLoader{
		parent:   parent,
		mode:     mode.or(ParentFirst),
		code:     c,
		classes:  make(map[string]*code.Class),
		packages: make(map[string]*code.Package),
		locks:    make(map[string]*nameLock),
	}
}

func (l *BytecodeClassLoader) Parent() code.ClassLoader { return l.parent }
func (l *BytecodeClassLoader) Mode() LoadMode           { return l.mode }
func (l *BytecodeClassLoader) Code() *code.Code         { return l.code }

func (l *BytecodeClassLoader) String() string {
	return "bytecode class loader for " + l.code.SourcesName() + " (" + l.mode.String() + ")"
}

// DefineClass returns the class called name defined from this loader's
// Code, defining it on first use. It reports false if the Code has no
// bytecode for name.
func (l *BytecodeClassLoader) DefineClass(name string) (*code.Class, bool) {
	bc, ok := l.code.Bytecode(name)
	if !ok {
		return nil, false
	}
	if c := l.FindLoadedClass(name); c != nil {
		return c, true
	}

	pkgName := code.PackageName(name)
	if pkgName != "" {
		unlock := l.lock("package " + pkgName)
		l.definePackage(pkgName)
		unlock()
	}

	unlock := l.lock("class " + name)
	defer unlock()

	// Another goroutine may have won while we waited for the class lock.
	if c := l.FindLoadedClass(name); c != nil {
		return c, true
	}

	l.mu.Lock()
	c := code.NewClass(l, l.packages[pkgName], bc)
	l.classes[name] = c
	l.mu.Unlock()

	l.defined.push(c)
	log.Debugf("defined %s in %s", name, l.code.SourcesName())
	return c, true
}

// FindLoadedClass returns the class called name if this loader has already
// defined it.
func (l *BytecodeClassLoader) FindLoadedClass(name string) *code.Class {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.classes[name]
}

// Package returns a package defined by this loader.
func (l *BytecodeClassLoader) Package(name string) (*code.Package, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.packages[name]
	return p, ok
}

// definePackage must be called with the package's name lock held.
func (l *BytecodeClassLoader) definePackage(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.packages[name]; !ok {
		l.packages[name] = code.NewPackage(name, l)
	}
}

// lock acquires the name lock for key, creating it if needed, and returns
// the function that releases it.
func (l *BytecodeClassLoader) lock(key string) func() {
	l.mu.Lock()
	nl := l.locks[key]
	if nl == nil {
		nl = &nameLock{}
		l.locks[key] = nl
	}
	nl.refs++
	l.mu.Unlock()

	nl.mu.Lock()
	return func() {
		nl.mu.Unlock()
		l.mu.Lock()
		nl.refs--
		if nl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// LoadClass resolves name. In ParentFirst mode the order is: classes already
// defined here, the parent, then this loader's Code. In CurrentFirst mode
// this loader's Code is tried before that order, so its classes shadow the
// parent's.
func (l *BytecodeClassLoader) LoadClass(name string) (*code.Class, error) {
	if l.mode == CurrentFirst {
		if c, ok := l.DefineClass(name); ok {
			return c, nil
		}
	}
	if c := l.FindLoadedClass(name); c != nil {
		return c, nil
	}
	if l.parent != nil {
		c, err := l.parent.LoadClass(name)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, code.ErrClassNotFound) {
			return nil, err
		}
	}
	if c, ok := l.DefineClass(name); ok {
		return c, nil
	}
	return nil, &code.ClassNotFoundError{Name: name}
}

// FindBytecodeClassLoaderBySource returns the loader owning src: in
// ParentFirst mode the parent chain is searched before this loader, in
// CurrentFirst mode after it. It returns nil if no loader owns src.
func (l *BytecodeClassLoader) FindBytecodeClassLoaderBySource(src source.Source) *BytecodeClassLoader {
	if l.mode == ParentFirst {
		if owner := findOwner(l.parent, src); owner != nil {
			return owner
		}
		if l.code.IsForSource(src) {
			return l
		}
		return nil
	}
	if l.code.IsForSource(src) {
		return l
	}
	return findOwner(l.parent, src)
}

// findOwner searches cl for the owner of src if cl can locate sources.
func findOwner(cl code.ClassLoader, src source.Source) *BytecodeClassLoader {
	if scl, ok := cl.(SourceClassLoader); ok {
		return scl.FindBytecodeClassLoaderBySource(src)
	}
	return nil
}

// Clone returns a new loader over the same parent, mode and Code with no
// classes defined yet, giving an independent namespace over identical
// bytecode.
func (l *BytecodeClassLoader) Clone() *BytecodeClassLoader {
	return NewBytecodeClassLoader(l.parent, l.mode, l.code)
}

// ReleaseClasses hands every class defined since the last call to r.
// Classes already collected are skipped. Calling it again only releases
// classes defined in between.
func (l *BytecodeClassLoader) ReleaseClasses(r ClassReleaser) {
	for _, ref := range l.defined.drain() {
		if c := ref.Value(); c != nil {
			releaseOne(r, c)
		}
	}
}

// LoadMainClassBySource loads the main class of src from the loader that
// owns it in l's chain.
func LoadMainClassBySource(l SourceClassLoader, src source.Source) (*code.Class, error) {
	owner := l.FindBytecodeClassLoaderBySource(src)
	if owner == nil {
		return nil, sourceNotFound(src.ID())
	}
	return owner.loadMainClass(src)
}

// LoadClassBySourceAndName loads the class called name from the loader that
// owns src in l's chain.
func LoadClassBySourceAndName(l SourceClassLoader, src source.Source, name string) (*code.Class, error) {
	owner := l.FindBytecodeClassLoaderBySource(src)
	if owner == nil {
		return nil, sourceNotFound(src.ID())
	}
	return owner.loadClassBySource(src, name)
}

func (l *BytecodeClassLoader) loadMainClass(src source.Source) (*code.Class, error) {
	name, ok := l.code.MainClassName(src)
	if !ok {
		return nil, sourceNotFound(src.ID())
	}
	c, ok := l.DefineClass(name)
	if !ok {
		return nil, inconsistent(l.code, src.ID(), name)
	}
	return c, nil
}

func (l *BytecodeClassLoader) loadClassBySource(src source.Source, name string) (*code.Class, error) {
	info, ok := l.code.SourceInfo(src)
	if !ok {
		return nil, sourceNotFound(src.ID())
	}
	c, ok := l.DefineClass(name)
	if !ok {
		if info.HasClass(name) {
			return nil, inconsistent(l.code, src.ID(), name)
		}
		return nil, classNotFound(src.ID(), name)
	}
	return c, nil
}
