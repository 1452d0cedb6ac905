package source

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDir walks dir recursively and returns a File source for every regular
// file whose extension (without the dot) is in exts. An empty exts matches
// every file. Results are sorted by path so repeated scans are stable.
func ScanDir(dir string, exts []string) ([]*File, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.TrimPrefix(e, ".")] = true
	}

	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories (.git, .codelayers) are skipped.
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(want) > 0 && !want[strings.TrimPrefix(filepath.Ext(p), ".")] {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(paths)

	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := NewFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
