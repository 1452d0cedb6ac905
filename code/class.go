package code

import "strings"

// NamespaceSeparator separates the namespace (package) of a class name from
// its simple name, as in "Geo::Point".
const NamespaceSeparator = "::"

// PackageName returns the namespace part of a class name, or "" for
// classes outside any namespace.
func PackageName(className string) string {
	i := strings.LastIndex(className, NamespaceSeparator)
	if i < 0 {
		return ""
	}
	return className[:i]
}

// ClassLoader resolves class names to runtime classes. Unknown names must
// produce an error that matches ErrClassNotFound.
type ClassLoader interface {
	LoadClass(name string) (*Class, error)
}

// Package is a namespace defined in a class loader. A loader defines each
// package at most once.
type Package struct {
	name   string
	loader ClassLoader
}

// NewPackage creates a package defined by loader.
func NewPackage(name string, loader ClassLoader) *Package {
	return &Package{name: name, loader: loader}
}

func (p *Package) Name() string        { return p.name }
func (p *Package) Loader() ClassLoader { return p.loader }

// Class is a runtime class defined from bytecode by a class loader.
// Two classes are the same class only if they are the same pointer: the same
// bytecode defined by two loaders yields two distinct classes.
type Class struct {
	name     string
	pkg      *Package
	bytecode *Bytecode
	loader   ClassLoader
}

// NewClass defines a class from bytecode in loader. pkg may be nil for
// classes outside any namespace.
func NewClass(loader ClassLoader, pkg *Package, bytecode *Bytecode) *Class {
	return &Class{
		name:     bytecode.ClassName(),
		pkg:      pkg,
		bytecode: bytecode,
		loader:   loader,
	}
}

func (c *Class) Name() string { return c.name }

// Package returns the package of the class, or nil.
func (c *Class) Package() *Package { return c.pkg }

// Bytecode returns the bytecode the class was defined from.
func (c *Class) Bytecode() *Bytecode { return c.bytecode }

// Loader returns the defining class loader.
func (c *Class) Loader() ClassLoader { return c.loader }

func (c *Class) String() string { return "class " + c.name }
