package code

import (
	"errors"
	"testing"

	"github.com/chazu/codelayers/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stampSource is a source with a settable modification signal.
type stampSource struct {
	id    string
	stamp int64
}

func (s *stampSource) ID() string          { return s.id }
func (s *stampSource) LastModified() int64 { return s.stamp }

func mustCode(t *testing.T, name string, src source.Source, classes ...string) *Code {
	t.Helper()
	var bcs []*Bytecode
	for _, c := range classes {
		bcs = append(bcs, NewBytecode(c, []byte(c)))
	}
	c, err := New(name, []*CompiledSourceInfo{
		NewCompiledSourceInfo(src, classes[0], classes, src.LastModified()),
	}, bcs)
	require.NoError(t, err)
	return c
}

func TestNewCode(t *testing.T) {
	src := &stampSource{id: "a", stamp: 7}
	c := mustCode(t, "lib", src, "Geo::Point", "Geo::Line")

	assert.Equal(t, "lib", c.SourcesName())
	assert.True(t, c.IsForSource(src))
	assert.False(t, c.IsForSource(&stampSource{id: "b"}))
	assert.Equal(t, []string{"Geo::Line", "Geo::Point"}, c.ClassNames())

	main, ok := c.MainClassName(src)
	require.True(t, ok)
	assert.Equal(t, "Geo::Point", main)

	lm, ok := c.LastModifiedAtCompileTime(src)
	require.True(t, ok)
	assert.Equal(t, int64(7), lm)

	bc, ok := c.Bytecode("Geo::Line")
	require.True(t, ok)
	assert.Equal(t, []byte("Geo::Line"), bc.Bytes())

	_, ok = c.MainClassName(&stampSource{id: "b"})
	assert.False(t, ok)
	assert.Len(t, c.Sources(), 1)
}

func TestNewCodeRejectsMissingBytecode(t *testing.T) {
	src := &stampSource{id: "a"}
	_, err := New("lib", []*CompiledSourceInfo{
		NewCompiledSourceInfo(src, "Main", []string{"Main", "Helper"}, 0),
	}, []*Bytecode{NewBytecode("Main", nil)})

	require.ErrorIs(t, err, ErrInconsistentCode)
	var ice *InconsistentCodeError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, "Helper", ice.ClassName)
	assert.Equal(t, "a", ice.SourceID)
}

func TestNewCodeRejectsMissingMainClass(t *testing.T) {
	src := &stampSource{id: "a"}
	_, err := New("lib", []*CompiledSourceInfo{
		NewCompiledSourceInfo(src, "Main", nil, 0),
	}, nil)
	assert.ErrorIs(t, err, ErrInconsistentCode)
}

func TestNewCodeRejectsDuplicates(t *testing.T) {
	src := &stampSource{id: "a"}
	_, err := New("lib", nil, []*Bytecode{NewBytecode("X", nil), NewBytecode("X", nil)})
	assert.ErrorIs(t, err, ErrInconsistentCode)

	info := NewCompiledSourceInfo(src, "X", nil, 0)
	_, err = New("lib", []*CompiledSourceInfo{info, info}, []*Bytecode{NewBytecode("X", nil)})
	assert.ErrorIs(t, err, ErrInconsistentCode)
}

func TestBytecodeCopiesInput(t *testing.T) {
	raw := []byte("abc")
	bc := NewBytecode("X", raw)
	raw[0] = 'z'
	assert.Equal(t, []byte("abc"), bc.Bytes())
}

func TestSingleSourceCode(t *testing.T) {
	src := &stampSource{id: "a", stamp: 3}
	ssc, err := NewSingleSourceCode(mustCode(t, "a", src, "Main"))
	require.NoError(t, err)
	assert.Equal(t, src, ssc.Source())
	assert.Equal(t, "Main", ssc.Info().MainClassName())
	assert.Equal(t, int64(3), ssc.Info().LastModifiedAtCompileTime())

	empty, err := New("none", nil, nil)
	require.NoError(t, err)
	_, err = NewSingleSourceCode(empty)
	assert.ErrorIs(t, err, ErrInconsistentCode)
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "Geo", PackageName("Geo::Point"))
	assert.Equal(t, "A::B", PackageName("A::B::C"))
	assert.Equal(t, "", PackageName("Point"))
}

func TestSourcesFingerprint(t *testing.T) {
	a := &stampSource{id: "a", stamp: 1}
	b := &stampSource{id: "b", stamp: 1}

	s := NewSources("lib", nil, a, b, a)
	assert.Equal(t, 2, s.Len(), "duplicate IDs are dropped")
	assert.Equal(t, []string{"a", "b"}, source.IDs(s.Sources()))

	before := s.LastModified()
	assert.Equal(t, before, s.LastModified(), "fingerprint is stable")

	b.stamp = 2
	assert.NotEqual(t, before, s.LastModified(), "an edit changes the fingerprint")

	b.stamp = 1
	assert.Equal(t, before, s.LastModified())
	assert.NotEqual(t, before, NewSources("lib", nil, a).LastModified(), "a removal changes the fingerprint")
}

type compilerFunc func(sources *Sources) (*Code, error)

func (f compilerFunc) Compile(sources *Sources) (*Code, error) { return f(sources) }

func TestCompileWrapsErrors(t *testing.T) {
	src := &stampSource{id: "a"}
	boom := errors.New("boom")
	factory := CompilerFactoryFunc(func(parent ClassLoader) Compiler {
		return compilerFunc(func(*Sources) (*Code, error) { return nil, boom })
	})

	_, err := Compile(nil, NewSources("lib", factory, src))
	require.ErrorIs(t, err, ErrCompile)
	require.ErrorIs(t, err, boom)
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "lib", ce.SourcesName)

	_, err = Compile(nil, NewSources("nofactory", nil, src))
	assert.ErrorIs(t, err, ErrCompile)
}

func TestCompileSource(t *testing.T) {
	src := &stampSource{id: "a", stamp: 9}
	var sawParent ClassLoader
	parent := mapLoader{}
	factory := CompilerFactoryFunc(func(p ClassLoader) Compiler {
		sawParent = p
		return compilerFunc(func(s *Sources) (*Code, error) {
			assert.Equal(t, "a", s.Name())
			return mustCode(t, s.Name(), s.Sources()[0], "Main"), nil
		})
	})

	ssc, err := CompileSource(parent, factory, src)
	require.NoError(t, err)
	assert.Equal(t, "Main", ssc.Info().MainClassName())
	assert.Equal(t, parent, sawParent)
}

// mapLoader loads classes from a fixed map.
type mapLoader map[string]*Class

func (m mapLoader) LoadClass(name string) (*Class, error) {
	if c, ok := m[name]; ok {
		return c, nil
	}
	return nil, &ClassNotFoundError{Name: name}
}

func TestClassNotFoundError(t *testing.T) {
	_, err := mapLoader{}.LoadClass("X")
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Contains(t, err.Error(), "X")
}
