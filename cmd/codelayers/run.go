package main

import (
	"fmt"
	"sort"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/compiler"
	"github.com/chazu/codelayers/manifest"
	"github.com/chazu/codelayers/source"
)

func handleRunCommand(m *manifest.Manifest, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: run requires at least one script", errUsage)
	}
	e, err := newEngine(m)
	if err != nil {
		return err
	}
	defer e.Close()
	l := e.NewAttachedLoader()

	for _, p := range paths {
		src, err := source.NewFile(p)
		if err != nil {
			return err
		}
		c, err := e.LoadMainClass(l, src)
		if err != nil {
			return err
		}
		if err := printClass(c); err != nil {
			return err
		}
	}
	return nil
}

func printClass(c *code.Class) error {
	f, err := compiler.Decode(c.Bytecode().Bytes())
	if err != nil {
		return err
	}
	nameColor.Printf("%s", f.Name)
	if f.Super != "" {
		fmt.Printf(" extends %s", f.Super)
	}
	fmt.Println()
	for _, n := range sortedMembers(f) {
		fmt.Printf("  %s = %s\n", n, f.Members[n])
	}
	for _, line := range f.Body {
		fmt.Printf("  | %s\n", line)
	}
	return nil
}

func sortedMembers(f *compiler.ClassFile) []string {
	names := make([]string, 0, len(f.Members))
	for n := range f.Members {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
