package code

import (
	"errors"
	"fmt"
)

var (
	// ErrCompile marks every error produced by compiling sources.
	ErrCompile = errors.New("compile failed")

	// ErrClassNotFound is reported when no loader can supply a class.
	ErrClassNotFound = errors.New("class not found")

	// ErrInconsistentCode is reported when Code metadata names a class for
	// which no bytecode exists. It always indicates a defect in the
	// compiler or in hand-built Code.
	ErrInconsistentCode = errors.New("inconsistent code")
)

// CompileError is returned when the compiler could not produce Code for a
// batch of sources.
type CompileError struct {
	SourcesName string
	Err         error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile failed for sources %q: %v", e.SourcesName, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

func (e *CompileError) Is(target error) bool { return target == ErrCompile }

// InconsistentCodeError describes Code whose metadata and bytecode disagree.
type InconsistentCodeError struct {
	SourcesName string
	SourceID    string
	ClassName   string
	Reason      string
}

func (e *InconsistentCodeError) Error() string {
	msg := "inconsistent code"
	if e.SourcesName != "" {
		msg += fmt.Sprintf(" in %q", e.SourcesName)
	}
	if e.SourceID != "" {
		msg += " for source " + e.SourceID
	}
	if e.ClassName != "" {
		msg += " class " + e.ClassName
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InconsistentCodeError) Is(target error) bool { return target == ErrInconsistentCode }

// ClassNotFoundError is returned by ClassLoader.LoadClass for unknown names.
type ClassNotFoundError struct {
	Name string
}

func (e *ClassNotFoundError) Error() string { return "class not found: " + e.Name }

func (e *ClassNotFoundError) Is(target error) bool { return target == ErrClassNotFound }
