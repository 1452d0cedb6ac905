package code

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/chazu/codelayers/source"
)

// Compiler turns a batch of sources into Code. Failures should be
// *CompileError values; Compile wraps anything else.
type Compiler interface {
	Compile(sources *Sources) (*Code, error)
}

// CompilerFactory creates compilers that resolve referenced classes through
// parent. Different layers may use different factories.
type CompilerFactory interface {
	NewCompiler(parent ClassLoader) Compiler
}

// CompilerFactoryFunc adapts a function to CompilerFactory.
type CompilerFactoryFunc func(parent ClassLoader) Compiler

func (f CompilerFactoryFunc) NewCompiler(parent ClassLoader) Compiler { return f(parent) }

// Sources is a named, ordered batch of sources that is compiled as one code
// layer, together with the compiler factory to use for it.
type Sources struct {
	name    string
	members []source.Source
	factory CompilerFactory
}

// NewSources creates a batch. Sources with an ID seen earlier in the list
// are dropped.
func NewSources(name string, factory CompilerFactory, members ...source.Source) *Sources {
	seen := make(map[string]bool, len(members))
	s := &Sources{name: name, factory: factory}
	for _, m := range members {
		if seen[m.ID()] {
			continue
		}
		seen[m.ID()] = true
		s.members = append(s.members, m)
	}
	return s
}

// SingleSource wraps one source in a batch named after its ID.
func SingleSource(src source.Source, factory CompilerFactory) *Sources {
	return NewSources(src.ID(), factory, src)
}

func (s *Sources) Name() string                     { return s.name }
func (s *Sources) CompilerFactory() CompilerFactory { return s.factory }
func (s *Sources) Len() int                         { return len(s.members) }

// Sources returns the members in order.
func (s *Sources) Sources() []source.Source {
	out := make([]source.Source, len(s.members))
	copy(out, s.members)
	return out
}

// LastModified is a fingerprint of the IDs and modification signals of all
// members. Adding, removing or modifying a member changes it.
func (s *Sources) LastModified() int64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, m := range s.members {
		h.Write([]byte(m.ID()))
		lm := uint64(m.LastModified())
		for i := range buf {
			buf[i] = byte(lm >> (8 * i))
		}
		h.Write(buf[:])
	}
	return int64(h.Sum64())
}

func (s *Sources) String() string {
	return fmt.Sprintf("sources %q (%d)", s.name, len(s.members))
}

// Compile compiles sources with a compiler from their factory, resolving
// classes through parent. Every failure is returned as a *CompileError.
func Compile(parent ClassLoader, sources *Sources) (*Code, error) {
	if sources.factory == nil {
		return nil, &CompileError{SourcesName: sources.name, Err: errors.New("no compiler factory")}
	}
	c, err := sources.factory.NewCompiler(parent).Compile(sources)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CompileError{SourcesName: sources.name, Err: err}
	}
	return c, nil
}

// CompileSource compiles a single source.
func CompileSource(parent ClassLoader, factory CompilerFactory, src source.Source) (*SingleSourceCode, error) {
	c, err := Compile(parent, SingleSource(src, factory))
	if err != nil {
		return nil, err
	}
	return NewSingleSourceCode(c)
}
