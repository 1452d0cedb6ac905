package loader

import (
	"errors"
	"fmt"

	"github.com/chazu/codelayers/code"
)

// ErrSourceNotFound is reported when no layer owns a source and there is no
// top code cache to compile it.
var ErrSourceNotFound = errors.New("source not found")

// LoadError is a failure to load a class for a source. Err is
// ErrSourceNotFound, a *code.ClassNotFoundError or a
// *code.InconsistentCodeError, so callers can tell them apart with errors.Is.
type LoadError struct {
	SourceID  string
	ClassName string
	Err       error
}

func (e *LoadError) Error() string {
	switch {
	case errors.Is(e.Err, ErrSourceNotFound):
		return fmt.Sprintf("source not found: %s", e.SourceID)
	case e.ClassName != "":
		return fmt.Sprintf("loading class %s for source %s: %v", e.ClassName, e.SourceID, e.Err)
	default:
		return fmt.Sprintf("loading source %s: %v", e.SourceID, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

func sourceNotFound(sourceID string) error {
	return &LoadError{SourceID: sourceID, Err: ErrSourceNotFound}
}

func classNotFound(sourceID, name string) error {
	return &LoadError{SourceID: sourceID, ClassName: name, Err: &code.ClassNotFoundError{Name: name}}
}

func inconsistent(c *code.Code, sourceID, name string) error {
	return &LoadError{
		SourceID:  sourceID,
		ClassName: name,
		Err: &code.InconsistentCodeError{
			SourcesName: c.SourcesName(),
			SourceID:    sourceID,
			ClassName:   name,
			Reason:      "code names the class but has no bytecode for it",
		},
	}
}
