package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/codelayers/code"
	"github.com/chazu/codelayers/source"
)

var log = commonlog.GetLogger("codelayers.manifest")

// WriteCode writes c to path as a precompiled code file, creating the
// directory if needed.
func WriteCode(path string, c *code.Code) error {
	data, err := code.MarshalCode(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadCode reads a code file written by WriteCode.
func ReadCode(path string, resolve code.SourceResolver) (*code.Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return code.UnmarshalCode(data, resolve)
}

// ResolveFile resolves file source IDs.
func ResolveFile(id string) (source.Source, error) {
	path, ok := strings.CutPrefix(id, "file:")
	if !ok {
		return nil, fmt.Errorf("not a file source: %s", id)
	}
	return source.NewFile(path)
}
