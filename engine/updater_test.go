package engine

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/compiler"
	"github.com/chazu/codelayers/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptDir struct {
	t     *testing.T
	dir   string
	clock time.Time
}

func newScriptDir(t *testing.T) *scriptDir {
	return &scriptDir{t: t, dir: t.TempDir(), clock: time.UnixMilli(1_700_000_000_000)}
}

// write stores a script with a modification time later than any before.
func (d *scriptDir) write(name, text string) {
	d.clock = d.clock.Add(time.Second)
	path := filepath.Join(d.dir, name)
	require.NoError(d.t, os.WriteFile(path, []byte(text), 0644))
	require.NoError(d.t, os.Chtimes(path, d.clock, d.clock))
}

func (d *scriptDir) provider() ([]*code.Sources, error) {
	files, err := source.ScanDir(d.dir, []string{"cl"})
	if err != nil {
		return nil, err
	}
	srcs := make([]source.Source, len(files))
	for i, f := range files {
		srcs[i] = f
	}
	return []*code.Sources{code.NewSources("scripts", compiler.Factory, srcs...)}, nil
}

func TestUpdaterCheck(t *testing.T) {
	d := newScriptDir(t)
	d.write("greeter.cl", "class Greeter\n  msg = hello\n")

	e, err := New(Config{})
	require.NoError(t, err)
	u := NewUpdater(e, d.provider, 0)
	assert.Equal(t, DefaultUpdateInterval, u.Interval())
	l := e.NewAttachedLoader()

	updated, err := u.Check()
	require.NoError(t, err)
	assert.True(t, updated)
	c, err := e.LoadClassByName(l, "Greeter")
	assert.Equal(t, "hello", member(t, c, err, "msg"))

	updated, err = u.Check()
	require.NoError(t, err)
	assert.False(t, updated, "nothing changed")

	d.write("greeter.cl", "class Greeter\n  msg = hi\n")
	updated, err = u.Check()
	require.NoError(t, err)
	assert.True(t, updated)
	c, err = e.LoadClassByName(l, "Greeter")
	assert.Equal(t, "hi", member(t, c, err, "msg"))

	d.write("extra.cl", "class Extra\n")
	updated, err = u.Check()
	require.NoError(t, err)
	assert.True(t, updated, "added file")
	assert.Equal(t, uint64(3), u.UpdateCount())
	assert.Equal(t, uint64(3), e.Generation())
}

func TestUpdaterKeepsLastError(t *testing.T) {
	d := newScriptDir(t)
	d.write("a.cl", "class A\n")

	e, err := New(Config{})
	require.NoError(t, err)
	u := NewUpdater(e, d.provider, time.Hour)
	_, err = u.Check()
	require.NoError(t, err)

	d.write("b.cl", "class A\n")
	_, err = u.Check()
	require.ErrorIs(t, err, code.ErrCompile)
	assert.ErrorIs(t, u.LastError(), code.ErrCompile)
	assert.Len(t, e.Layers(), 1)
	assert.Equal(t, uint64(1), u.UpdateCount())

	// Retried on every check until it succeeds.
	_, err = u.Check()
	assert.Error(t, err)

	d.write("b.cl", "class B\n")
	updated, err := u.Check()
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, u.LastError())

	failing := NewUpdater(e, func() ([]*code.Sources, error) {
		return nil, errors.New("scan failed")
	}, time.Hour)
	_, err = failing.Check()
	assert.EqualError(t, err, "scan failed")
	assert.EqualError(t, failing.LastError(), "scan failed")
}

func TestUpdaterLastErrorDuringSlowUpdate(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	slow := code.CompilerFactoryFunc(func(parent code.ClassLoader) code.Compiler {
		once.Do(func() { close(entered) })
		<-release
		return compiler.New(parent)
	})

	e, err := New(Config{})
	require.NoError(t, err)
	u := NewUpdater(e, func() ([]*code.Sources, error) {
		return []*code.Sources{code.NewSources("slow", slow, source.NewNamedText("A", "class A\n"))}, nil
	}, time.Hour)

	checked := make(chan error, 1)
	go func() {
		_, err := u.Check()
		checked <- err
	}()
	<-entered

	read := make(chan error, 1)
	go func() { read <- u.LastError() }()
	select {
	case err := <-read:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Error("LastError blocked behind a running check")
	}

	close(release)
	require.NoError(t, <-checked)
	assert.Equal(t, uint64(1), u.UpdateCount())
}

func TestUpdaterLoop(t *testing.T) {
	d := newScriptDir(t)
	d.write("a.cl", "class A\n")

	e, err := New(Config{})
	require.NoError(t, err)
	u := NewUpdater(e, d.provider, 5*time.Millisecond)

	u.Start()
	u.Start()
	require.Eventually(t, func() bool { return u.UpdateCount() == 1 }, time.Second, time.Millisecond)

	u.SetEnabled(false)
	assert.False(t, u.IsEnabled())
	time.Sleep(20 * time.Millisecond) // let a check in flight finish
	d.write("a.cl", "class A\n  v = 2\n")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, uint64(1), u.UpdateCount(), "disabled updater must not update")

	u.SetEnabled(true)
	require.Eventually(t, func() bool { return u.UpdateCount() == 2 }, time.Second, time.Millisecond)

	u.Stop()
	u.Stop()
	d.write("a.cl", "class A\n  v = 3\n")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, uint64(2), u.UpdateCount())
}
