// Package catalog compiles step specifications into the ordered step catalog
// a wizard navigates.
package catalog

import (
	"strconv"
	"strings"

	"github.com/petrijr/formflow/pkg/api"
)

// Options control how a Spec is compiled.
type Options struct {
	// Separator joins page and substep names. Defaults to "|".
	Separator string
	// Reserved names may not be used as step keys.
	Reserved []string
	// FileStorage reports whether a file storage collaborator is configured.
	FileStorage bool
}

func (o Options) separator() string {
	if o.Separator == "" {
		return api.DefaultSeparator
	}
	return o.Separator
}

// Build compiles spec into a catalog. Unnamed entries are named after their
// zero-based position; pages are flattened into "<page><sep><substep>" keys.
func Build(spec api.Spec, opts Options) (*api.Catalog, error) {
	if len(spec) == 0 {
		return nil, api.Configurationf("at least one step is needed")
	}
	sep := opts.separator()

	var keys []string
	groups := make(map[string]api.FormGroup)

	add := func(key string, g api.FormGroup) error {
		if _, dup := groups[key]; dup {
			return api.Configurationf("duplicate step %q", key)
		}
		if err := checkGroup(key, g); err != nil {
			return err
		}
		keys = append(keys, key)
		groups[key] = g
		return nil
	}

	for i, entry := range spec {
		name := stepName(entry.Name, i)
		if strings.Contains(name, sep) {
			return nil, api.Configurationf("step name %q contains separator %q", name, sep)
		}

		if entry.Substeps == nil {
			if err := add(name, entry.Group); err != nil {
				return nil, err
			}
			continue
		}

		if !entry.Group.IsZero() {
			return nil, api.Configurationf("page %q declares both a form and substeps", name)
		}
		if len(entry.Substeps) == 0 {
			return nil, api.Configurationf("page %q has no substeps", name)
		}
		for j, sub := range entry.Substeps {
			subName := stepName(sub.Name, j)
			if strings.Contains(subName, sep) {
				return nil, api.Configurationf("substep name %q contains separator %q", subName, sep)
			}
			if sub.Substeps != nil {
				return nil, api.Configurationf("substep %q of page %q cannot nest further", subName, name)
			}
			if err := add(name+sep+subName, sub.Group); err != nil {
				return nil, err
			}
		}
	}

	// Reserved names are checked against the finished catalog.
	for _, r := range opts.Reserved {
		if _, clash := groups[r]; clash {
			return nil, api.Configurationf("step %q collides with a reserved step name", r)
		}
	}

	if !opts.FileStorage {
		for _, k := range keys {
			if groups[k].AcceptsFiles() {
				return nil, api.Configurationf("step %q accepts file uploads but no file storage is configured", k)
			}
		}
	}

	return api.NewCatalog(sep, keys, groups), nil
}

func stepName(name string, index int) string {
	if name == "" {
		return strconv.Itoa(index)
	}
	return name
}

func checkGroup(key string, g api.FormGroup) error {
	if g.IsZero() {
		return api.Configurationf("step %q has no form", key)
	}
	if g.Kind() == api.GroupTagged {
		seen := make(map[string]bool)
		for _, e := range g.Entries() {
			if e.Tag == "" {
				return api.Configurationf("step %q has a form without a tag", key)
			}
			if seen[e.Tag] {
				return api.Configurationf("step %q declares tag %q twice", key, e.Tag)
			}
			seen[e.Tag] = true
			if e.Form == nil {
				return api.Configurationf("step %q tag %q has no form", key, e.Tag)
			}
		}
	}
	return nil
}

// SplitKey splits a composite key into page and substep. Flat keys return
// ok=false.
func SplitKey(key, sep string) (page, substep string, ok bool) {
	if sep == "" {
		sep = api.DefaultSeparator
	}
	return strings.Cut(key, sep)
}
