package engine

import (
	"errors"
	"strings"

	"github.com/chazu/codelayers/code"
)

var (
	ErrEngineMismatch    = errors.New("loader belongs to a different engine")
	ErrClassNameConflict = errors.New("class name conflict")
	ErrBuilderUsed       = errors.New("engine builder already used")
	ErrClosed            = errors.New("engine closed")
)

// ClassNameConflictError reports every class name defined by more than one
// layer, or by a layer and the parent loader.
type ClassNameConflictError struct {
	Conflicts []code.Conflict
}

func (e *ClassNameConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.String()
	}
	return "class name conflicts: " + strings.Join(parts, "; ")
}

func (e *ClassNameConflictError) Is(target error) bool { return target == ErrClassNameConflict }

// ClassNames returns the conflicting class names, sorted.
func (e *ClassNameConflictError) ClassNames() []string {
	names := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		names[i] = c.ClassName
	}
	return names
}
