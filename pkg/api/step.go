package api

import (
	"context"
)

// DefaultSeparator joins page and substep names into composite step keys.
const DefaultSeparator = "|"

// StepSpec declares one entry of a wizard specification: either a leaf step
// backed by a FormGroup, or a page whose Substeps become composite keys.
// An empty Name is replaced by the zero-based position of the entry.
type StepSpec struct {
	Name     string
	Group    FormGroup
	Substeps []StepSpec
}

// Spec is the declarative, ordered list of steps a catalog is compiled from.
type Spec []StepSpec

// SpecFactory produces a Spec on first use, for wizards whose steps depend on
// runtime configuration.
type SpecFactory func(ctx context.Context) (Spec, error)

// Catalog is the compiled, immutable, ordered mapping from step key to form
// group. Declaration order is canonical step order.
type Catalog struct {
	separator string
	keys      []string
	index     map[string]int
	groups    map[string]FormGroup
}

// NewCatalog assembles a catalog from already validated parts. keys and
// groups must agree; callers normally go through the catalog builder.
func NewCatalog(separator string, keys []string, groups map[string]FormGroup) *Catalog {
	c := &Catalog{
		separator: separator,
		keys:      make([]string, len(keys)),
		index:     make(map[string]int, len(keys)),
		groups:    make(map[string]FormGroup, len(groups)),
	}
	copy(c.keys, keys)
	for i, k := range keys {
		c.index[k] = i
		c.groups[k] = groups[k]
	}
	return c
}

// Keys returns the step keys in declaration order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *Catalog) Len() int { return len(c.keys) }

func (c *Catalog) Separator() string { return c.separator }

// Group returns the form group registered for step.
func (c *Catalog) Group(step string) (FormGroup, bool) {
	g, ok := c.groups[step]
	return g, ok
}

func (c *Catalog) Contains(step string) bool {
	_, ok := c.index[step]
	return ok
}

// Index returns the declaration position of step, or -1.
func (c *Catalog) Index(step string) int {
	i, ok := c.index[step]
	if !ok {
		return -1
	}
	return i
}

// First returns the first declared step key.
func (c *Catalog) First() string {
	if len(c.keys) == 0 {
		return ""
	}
	return c.keys[0]
}
