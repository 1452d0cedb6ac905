package loader

import (
	"testing"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestTopCodeCacheStaleness(t *testing.T) {
	factory := &countingFactory{}
	tc := NewTopCodeCache(nil, factory)
	src := newScript("S", "class S\n  v = 1\n", 100)

	c1, err := tc.UpToDateCode(src)
	require.NoError(t, err)
	c2, err := tc.UpToDateCode(src)
	require.NoError(t, err)
	assert.Same(t, c1, c2, "unchanged source is served from the cache")
	assert.Equal(t, 1, factory.compiles())

	src.edit("class S\n  v = 2\n", 101)
	c3, err := tc.UpToDateCode(src)
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)
	assert.Equal(t, int64(101), c3.Info().LastModifiedAtCompileTime())
	assert.Equal(t, 2, factory.compiles())

	// A decrease is a change too.
	src.edit("class S\n  v = 3\n", 50)
	c4, err := tc.UpToDateCode(src)
	require.NoError(t, err)
	assert.Equal(t, int64(50), c4.Info().LastModifiedAtCompileTime())
	assert.Equal(t, 3, factory.compiles())
	assert.Equal(t, uint64(3), tc.Compilations())
	assert.Equal(t, 1, tc.Len())
}

func TestTopCodeCacheCompileError(t *testing.T) {
	tc := NewTopCodeCache(nil, compiler.Factory)
	src := newScript("S", "class S", 1)
	good, err := tc.UpToDateCode(src)
	require.NoError(t, err)

	src.edit("class", 2)
	_, err = tc.UpToDateCode(src)
	require.ErrorIs(t, err, code.ErrCompile)
	assert.Equal(t, 1, tc.Len())

	src.edit("class S", 1)
	again, err := tc.UpToDateCode(src)
	require.NoError(t, err)
	assert.Same(t, good, again, "failed compile left the previous entry in place")
}

func TestTopCodeCacheCollapsesConcurrentCompiles(t *testing.T) {
	factory := &countingFactory{}
	tc := NewTopCodeCache(nil, factory)
	src := newScript("S", "class S", 1)

	const workers = 16
	got := make([]*code.SingleSourceCode, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			c, err := tc.UpToDateCode(src)
			got[i] = c
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, factory.compiles())
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
}

func TestTopCodeCacheSetParentClears(t *testing.T) {
	tc := NewTopCodeCache(nil, compiler.Factory)
	src := newScript("Derived", "class Derived extends Base", 1)

	_, err := tc.UpToDateCode(src)
	require.ErrorIs(t, err, code.ErrCompile, "Base is not visible without a parent")

	host := NewHostClassLoader(code.NewBytecode("Base", nil))
	_, err = tc.UpToDateCode(newScript("Other", "class Other", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, tc.Len())

	tc.SetParent(host)
	assert.Same(t, host, tc.Parent())
	assert.Equal(t, 0, tc.Len(), "changing the parent clears the cache")

	_, err = tc.UpToDateCode(src)
	assert.NoError(t, err)
}

func TestTopCodeCacheClone(t *testing.T) {
	factory := &countingFactory{}
	tc := NewTopCodeCache(nil, factory)
	a := newScript("A", "class A", 1)
	b := newScript("B", "class B", 1)

	ca, err := tc.UpToDateCode(a)
	require.NoError(t, err)

	clone := tc.Clone()
	assert.Equal(t, 1, clone.Len())
	cloned, err := clone.UpToDateCode(a)
	require.NoError(t, err)
	assert.Same(t, ca, cloned, "clone is seeded with a snapshot")
	assert.Equal(t, 1, factory.compiles())

	_, err = clone.UpToDateCode(b)
	require.NoError(t, err)
	assert.Equal(t, 2, clone.Len())
	assert.Equal(t, 1, tc.Len(), "the original does not see the clone's entries")

	tc.SetParent(NewHostClassLoader())
	assert.Equal(t, 2, clone.Len(), "clearing the original leaves the clone alone")
}
