// Package source defines script sources, the units of script text the engine
// compiles, and the concrete kinds shipped with it: inline text, files, URLs
// and database rows.
package source

// Source is an identifiable unit of script text with a modification signal.
//
// ID must be stable for the lifetime of the source and equal for two sources
// that denote the same script; it is what caches and Code metadata are keyed
// on. LastModified is only ever compared for exact equality, so any value
// change (including a decrease) counts as a modification.
type Source interface {
	ID() string
	LastModified() int64
}

// Script is a Source whose text can be read by a compiler.
type Script interface {
	Source

	// ScriptName is the class name a compiler should give script code that
	// is not inside an explicit class declaration.
	ScriptName() string

	// Text returns the current script text.
	Text() (string, error)
}

// IDs returns the IDs of the given sources, in order.
func IDs(sources []Source) []string {
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.ID()
	}
	return ids
}
