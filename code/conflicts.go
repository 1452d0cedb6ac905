package code

import (
	"fmt"
	"sort"
	"strings"
)

// LayerRef identifies a code layer by position and sources name.
type LayerRef struct {
	Index int
	Name  string
}

func (r LayerRef) String() string { return fmt.Sprintf("layer %d (%s)", r.Index, r.Name) }

// Conflict is a class name defined in more than one place.
type Conflict struct {
	ClassName string
	Layers    []LayerRef // ordered by index
	Parent    bool       // also visible through the parent loader
}

// Pairs returns every pair of layers that both define the class.
func (c Conflict) Pairs() [][2]LayerRef {
	var pairs [][2]LayerRef
	for i := 0; i < len(c.Layers); i++ {
		for j := i + 1; j < len(c.Layers); j++ {
			pairs = append(pairs, [2]LayerRef{c.Layers[i], c.Layers[j]})
		}
	}
	return pairs
}

func (c Conflict) String() string {
	var origins []string
	if c.Parent {
		origins = append(origins, "parent")
	}
	for _, l := range c.Layers {
		origins = append(origins, l.String())
	}
	return c.ClassName + ": " + strings.Join(origins, ", ")
}

// layersByClassName maps each class name to the layers that define it.
func layersByClassName(layers []*Code) map[string][]LayerRef {
	m := make(map[string][]LayerRef)
	for i, c := range layers {
		for _, name := range c.ClassNames() {
			m[name] = append(m[name], LayerRef{Index: i, Name: c.SourcesName()})
		}
	}
	return m
}

// ConflictsBetweenLayers reports class names defined by two or more layers,
// one Conflict per class name, sorted by name.
func ConflictsBetweenLayers(layers []*Code) []Conflict {
	var out []Conflict
	for name, refs := range layersByClassName(layers) {
		if len(refs) > 1 {
			out = append(out, Conflict{ClassName: name, Layers: refs})
		}
	}
	sortConflicts(out)
	return out
}

// ConflictsWithParent reports class names defined by a layer that parent can
// already load. Each conflict lists every layer defining the name.
func ConflictsWithParent(parent ClassLoader, layers []*Code) []Conflict {
	if parent == nil {
		return nil
	}
	var out []Conflict
	for name, refs := range layersByClassName(layers) {
		// Any load failure, not only ErrClassNotFound, means the parent
		// does not expose the class.
		if _, err := parent.LoadClass(name); err != nil {
			continue
		}
		out = append(out, Conflict{ClassName: name, Layers: refs, Parent: true})
	}
	sortConflicts(out)
	return out
}

func sortConflicts(cs []Conflict) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ClassName < cs[j].ClassName })
}
