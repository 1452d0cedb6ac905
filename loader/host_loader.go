package loader

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/codelayers/code"
)

// HostClassLoader is a root class loader for classes the host application
// provides directly rather than through compiled layers. It has no parent.
type HostClassLoader struct {
	mu       sync.RWMutex
	classes  map[string]*code.Class
	packages map[string]*code.Package
}

// NewHostClassLoader creates a host loader defining the given classes.
// Later duplicates of a class name are ignored.
func NewHostClassLoader(bytecodes ...*code.Bytecode) *HostClassLoader {
	h := &HostClassLoader{
		classes:  make(map[string]*code.Class),
		packages: make(map[string]*code.Package),
	}
	for _, bc := range bytecodes {
		_, _ = h.Define(bc)
	}
	return h
}

// Define adds a class. Defining a name twice is an error.
func (h *HostClassLoader) Define(bc *code.Bytecode) (*code.Class, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := bc.ClassName()
	if _, ok := h.classes[name]; ok {
		return nil, fmt.Errorf("host class %s already defined", name)
	}
	var pkg *code.Package
	if pn := code.PackageName(name); pn != "" {
		pkg = h.packages[pn]
		if pkg == nil {
			pkg = code.NewPackage(pn, h)
			h.packages[pn] = pkg
		}
	}
	c := code.NewClass(h, pkg, bc)
	h.classes[name] = c
	return c, nil
}

func (h *HostClassLoader) LoadClass(name string) (*code.Class, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.classes[name]; ok {
		return c, nil
	}
	return nil, &code.ClassNotFoundError{Name: name}
}

// ClassNames returns the names of all host classes, sorted.
func (h *HostClassLoader) ClassNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.classes))
	for n := range h.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
