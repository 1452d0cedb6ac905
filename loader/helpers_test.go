package loader

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/compiler"
	"github.com/chazu/codelayers/source"
	"github.com/stretchr/testify/require"
)

// script is an in-memory script source whose text and modification signal
// can be changed by tests.
type script struct {
	id   string
	name string

	mu    sync.Mutex
	text  string
	stamp int64
}

func newScript(name, text string, stamp int64) *script {
	return &script{id: "test:/" + name, name: name, text: text, stamp: stamp}
}

func (s *script) ID() string         { return s.id }
func (s *script) ScriptName() string { return s.name }

func (s *script) LastModified() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stamp
}

func (s *script) Text() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, nil
}

func (s *script) edit(text string, stamp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.stamp = stamp
}

func compile(t *testing.T, parent code.ClassLoader, name string, srcs ...source.Source) *code.Code {
	t.Helper()
	c, err := code.Compile(parent, code.NewSources(name, compiler.Factory, srcs...))
	require.NoError(t, err)
	return c
}

// countingFactory counts compilations.
type countingFactory struct {
	mu    sync.Mutex
	count int
}

func (f *countingFactory) NewCompiler(parent code.ClassLoader) code.Compiler {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
	return compiler.New(parent)
}

func (f *countingFactory) compiles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// gatedScript blocks the first LastModified call after arm until release is
// closed. The call reports the signal read before blocking.
type gatedScript struct {
	*script
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedScript(s *script) *gatedScript {
	return &gatedScript{script: s, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedScript) arm() { g.armed.Store(true) }

func (g *gatedScript) LastModified() int64 {
	stamp := g.script.LastModified()
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return stamp
}
