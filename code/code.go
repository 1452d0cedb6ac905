package code

import (
	"fmt"
	"sort"

	"github.com/chazu/codelayers/source"
)

// CompiledSourceInfo is the compile metadata recorded for one source.
type CompiledSourceInfo struct {
	source        source.Source
	mainClassName string
	classNames    map[string]struct{}
	lastModified  int64
}

// NewCompiledSourceInfo records that compiling src at the given modification
// signal produced classNames, of which mainClassName is the main class.
// The main class name is always part of the class names.
func NewCompiledSourceInfo(src source.Source, mainClassName string, classNames []string, lastModified int64) *CompiledSourceInfo {
	names := make(map[string]struct{}, len(classNames)+1)
	for _, n := range classNames {
		names[n] = struct{}{}
	}
	names[mainClassName] = struct{}{}
	return &CompiledSourceInfo{
		source:        src,
		mainClassName: mainClassName,
		classNames:    names,
		lastModified:  lastModified,
	}
}

func (i *CompiledSourceInfo) Source() source.Source { return i.source }
func (i *CompiledSourceInfo) MainClassName() string { return i.mainClassName }

// LastModifiedAtCompileTime is the source's modification signal as read
// when it was compiled.
func (i *CompiledSourceInfo) LastModifiedAtCompileTime() int64 { return i.lastModified }

// ClassNames returns all classes compiled from the source, sorted.
func (i *CompiledSourceInfo) ClassNames() []string {
	return sortedKeys(i.classNames)
}

// HasClass reports whether name was compiled from the source.
func (i *CompiledSourceInfo) HasClass(name string) bool {
	_, ok := i.classNames[name]
	return ok
}

// Code is the immutable result of compiling one batch of sources: bytecode
// by class name plus compile metadata per source. It is safe for concurrent
// use.
type Code struct {
	sourcesName string
	infos       map[string]*CompiledSourceInfo // by source ID
	bytecodes   map[string]*Bytecode
}

// New creates Code and verifies that every class named by the source infos
// has bytecode. A violation returns an *InconsistentCodeError.
func New(sourcesName string, infos []*CompiledSourceInfo, bytecodes []*Bytecode) (*Code, error) {
	c := &Code{
		sourcesName: sourcesName,
		infos:       make(map[string]*CompiledSourceInfo, len(infos)),
		bytecodes:   make(map[string]*Bytecode, len(bytecodes)),
	}
	for _, b := range bytecodes {
		if _, dup := c.bytecodes[b.ClassName()]; dup {
			return nil, &InconsistentCodeError{
				SourcesName: sourcesName,
				ClassName:   b.ClassName(),
				Reason:      "bytecode given twice",
			}
		}
		c.bytecodes[b.ClassName()] = b
	}
	for _, info := range infos {
		id := info.source.ID()
		if _, dup := c.infos[id]; dup {
			return nil, &InconsistentCodeError{
				SourcesName: sourcesName,
				SourceID:    id,
				Reason:      "source given twice",
			}
		}
		for _, name := range info.ClassNames() {
			if _, ok := c.bytecodes[name]; !ok {
				return nil, &InconsistentCodeError{
					SourcesName: sourcesName,
					SourceID:    id,
					ClassName:   name,
					Reason:      "no bytecode for class",
				}
			}
		}
		c.infos[id] = info
	}
	return c, nil
}

// SourcesName is the name of the sources the code was compiled from.
func (c *Code) SourcesName() string { return c.sourcesName }

// IsForSource reports whether src was part of the compiled batch.
func (c *Code) IsForSource(src source.Source) bool {
	_, ok := c.infos[src.ID()]
	return ok
}

// SourceInfo returns the compile metadata for src.
func (c *Code) SourceInfo(src source.Source) (*CompiledSourceInfo, bool) {
	info, ok := c.infos[src.ID()]
	return info, ok
}

// MainClassName returns the main class name compiled from src.
func (c *Code) MainClassName(src source.Source) (string, bool) {
	info, ok := c.infos[src.ID()]
	if !ok {
		return "", false
	}
	return info.mainClassName, true
}

// LastModifiedAtCompileTime returns src's modification signal at compile time.
func (c *Code) LastModifiedAtCompileTime(src source.Source) (int64, bool) {
	info, ok := c.infos[src.ID()]
	if !ok {
		return 0, false
	}
	return info.lastModified, true
}

// Sources returns the compiled sources ordered by ID.
func (c *Code) Sources() []source.Source {
	ids := sortedKeys(c.infos)
	out := make([]source.Source, len(ids))
	for i, id := range ids {
		out[i] = c.infos[id].source
	}
	return out
}

// ClassNames returns the names of all classes with bytecode, sorted.
func (c *Code) ClassNames() []string { return sortedKeys(c.bytecodes) }

// Bytecode returns the bytecode for a class name.
func (c *Code) Bytecode(className string) (*Bytecode, bool) {
	b, ok := c.bytecodes[className]
	return b, ok
}

// HasClass reports whether the code has bytecode for className.
func (c *Code) HasClass(className string) bool {
	_, ok := c.bytecodes[className]
	return ok
}

func (c *Code) String() string {
	return fmt.Sprintf("code for %q (%d sources, %d classes)", c.sourcesName, len(c.infos), len(c.bytecodes))
}

// SingleSourceCode is Code compiled from exactly one source.
type SingleSourceCode struct {
	*Code
	info *CompiledSourceInfo
}

// NewSingleSourceCode wraps c, which must contain exactly one source.
func NewSingleSourceCode(c *Code) (*SingleSourceCode, error) {
	if len(c.infos) != 1 {
		return nil, &InconsistentCodeError{
			SourcesName: c.sourcesName,
			Reason:      fmt.Sprintf("expected exactly one source, got %d", len(c.infos)),
		}
	}
	var info *CompiledSourceInfo
	for _, i := range c.infos {
		info = i
	}
	return &SingleSourceCode{Code: c, info: info}, nil
}

// Source returns the single source.
func (c *SingleSourceCode) Source() source.Source { return c.info.source }

// Info returns the compile metadata of the single source.
func (c *SingleSourceCode) Info() *CompiledSourceInfo { return c.info }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
