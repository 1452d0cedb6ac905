package loader

import "fmt"

// LoadMode decides whether a loader consults itself or its parent first.
type LoadMode uint8

const (
	// CurrentFirst lets classes of the current loader shadow same-named
	// classes visible through the parent.
	CurrentFirst LoadMode = iota + 1

	// ParentFirst is the conventional delegation order: a class visible
	// through the parent always wins.
	ParentFirst
)

func (m LoadMode) String() string {
	switch m {
	case CurrentFirst:
		return "current-first"
	case ParentFirst:
		return "parent-first"
	default:
		return fmt.Sprintf("LoadMode(%d)", uint8(m))
	}
}

// ParseLoadMode parses the String form of a LoadMode.
func ParseLoadMode(s string) (LoadMode, error) {
	switch s {
	case "current-first":
		return CurrentFirst, nil
	case "parent-first":
		return ParentFirst, nil
	default:
		return 0, fmt.Errorf("unknown load mode %q (want current-first or parent-first)", s)
	}
}

func (m LoadMode) valid() bool { return m == CurrentFirst || m == ParentFirst }

// or returns m, or def if m is unset.
func (m LoadMode) or(def LoadMode) LoadMode {
	if m == 0 {
		return def
	}
	return m
}
