package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File is a source backed by a file on disk. Its modification signal is the
// file's mtime in milliseconds, or 0 if the file cannot be stat'ed.
type File struct {
	path string
}

// NewFile creates a file source for path, which is made absolute.
// The file does not need to exist yet.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return &File{path: filepath.Clean(abs)}, nil
}

// Path returns the absolute path of the file.
func (f *File) Path() string { return f.path }

func (f *File) ID() string { return "file:" + f.path }

func (f *File) LastModified() int64 {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixMilli()
}

// ScriptName is the PascalCase form of the file name without extension.
func (f *File) ScriptName() string {
	base := filepath.Base(f.path)
	return ClassName(strings.TrimSuffix(base, filepath.Ext(base)))
}

func (f *File) Text() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", f.path, err)
	}
	return string(data), nil
}

func (f *File) String() string { return f.ID() }
