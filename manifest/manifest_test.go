package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/compiler"
	"github.com/chazu/codelayers/engine"
	"github.com/chazu/codelayers/loader"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[project]
name = "shop"
version = "0.1.0"

[engine]
load-mode = "parent-first"
top-code-cache = true
top-load-mode = "current-first"
layer-conflict-check = false
update-interval = "2s"

[[layer]]
name = "lib"
dirs = ["lib", "vendor"]

[[layer]]
name = "app"
dirs = ["app"]
extensions = ["cl", "script"]
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "shop" {
		t.Errorf("project name = %q, want shop", m.Project.Name)
	}
	if len(m.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(m.Layers))
	}
	if got := m.Layers[0].Extensions; len(got) != 1 || got[0] != "cl" {
		t.Errorf("default extensions = %v, want [cl]", got)
	}
	if got := m.Layers[1].Extensions; len(got) != 2 {
		t.Errorf("extensions = %v, want [cl script]", got)
	}
	if m.UpdateInterval() != 2*time.Second {
		t.Errorf("update interval = %v, want 2s", m.UpdateInterval())
	}

	cfg := m.EngineConfig(compiler.Factory)
	if cfg.LoadMode != loader.ParentFirst {
		t.Errorf("load mode = %v, want parent-first", cfg.LoadMode)
	}
	if cfg.TopLoadMode != loader.CurrentFirst {
		t.Errorf("top load mode = %v, want current-first", cfg.TopLoadMode)
	}
	if !cfg.TopCodeCache || cfg.TopCompilerFactory == nil {
		t.Error("top code cache not configured")
	}
	if !cfg.DisableLayerConflictCheck {
		t.Error("layer conflict check should be disabled")
	}
	if cfg.DisableParentConflictCheck {
		t.Error("parent conflict check should default to enabled")
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[engine]
load-mode = "sideways"
update-interval = "soon"

[[layer]]
dirs = ["a"]

[[layer]]
name = "b"
code = "b.cbor"
dirs = ["b"]

[[layer]]
name = "b"
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{
		"load-mode",
		"update-interval",
		"layer 0 has no name",
		`layer "b" has both code and dirs`,
		`layer "b" defined twice`,
		`layer "b" has neither code nor dirs`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, FileName), "[project]\nname = \"found-project\"\n")

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no codelayers.toml exists")
	}
}

func TestApplySourceLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[[layer]]
name = "lib"
dirs = ["lib"]

[[layer]]
name = "app"
dirs = ["app"]
`)
	writeFile(t, filepath.Join(dir, "lib", "shape.cl"), "class Shape\n  sides = 0\n")
	writeFile(t, filepath.Join(dir, "lib", "README.md"), "not a script")
	writeFile(t, filepath.Join(dir, "app", "square.cl"), "class Square extends Shape\n  sides = 4\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Precompiled() {
		t.Error("source layers reported as precompiled")
	}
	e, err := engine.New(m.EngineConfig(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Apply(e, compiler.Factory); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	c, err := e.LoadClassByName(e.NewAttachedLoader(), "Square")
	if err != nil {
		t.Fatalf("LoadClassByName failed: %v", err)
	}
	if got := compiler.Member(c, "sides"); got != "4" {
		t.Errorf("sides = %q, want 4", got)
	}

	u := engine.NewUpdater(e, m.Provider(compiler.Factory), m.UpdateInterval())
	if updated, err := u.Check(); err != nil || !updated {
		t.Errorf("first updater check = %v, %v; want true, nil", updated, err)
	}

	if _, err := m.CodeLayers(nil); err == nil {
		t.Error("CodeLayers should fail for source layers")
	}
}

func TestApplyPrecompiledLayers(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "src", "greeter.cl")
	writeFile(t, script, "class Greeter\n  msg = hello\n")

	src, err := ResolveFile("file:" + script)
	if err != nil {
		t.Fatal(err)
	}
	c, err := code.Compile(nil, code.NewSources("greeting", compiler.Factory, src))
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteCode(filepath.Join(dir, "build", "greeting.cbor"), c); err != nil {
		t.Fatalf("WriteCode failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, FileName), `
[[layer]]
name = "greeting"
code = "build/greeting.cbor"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !m.Precompiled() {
		t.Fatal("expected precompiled manifest")
	}
	if _, err := m.SourcesLayers(compiler.Factory); !errors.Is(err, errPrecompiledLayer) {
		t.Errorf("SourcesLayers error = %v, want precompiled layer error", err)
	}

	e, err := engine.New(m.EngineConfig(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Apply(e, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	greeter, err := e.LoadMainClass(e.NewAttachedLoader(), src)
	if err != nil {
		t.Fatalf("LoadMainClass failed: %v", err)
	}
	if got := compiler.Member(greeter, "msg"); got != "hello" {
		t.Errorf("msg = %q, want hello", got)
	}
}

func TestResolveFile(t *testing.T) {
	if _, err := ResolveFile("text:/A/abc"); err == nil {
		t.Error("expected error for non-file source")
	}
}
