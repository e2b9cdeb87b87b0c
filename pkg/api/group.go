package api

import (
	"fmt"
)

// GroupKind tells the two shapes of a step apart.
type GroupKind int

const (
	// GroupSingle is a step backed by exactly one form.
	GroupSingle GroupKind = iota
	// GroupTagged is a step backed by several co-located forms, each
	// addressed by a tag.
	GroupTagged
)

func (k GroupKind) String() string {
	switch k {
	case GroupSingle:
		return "single"
	case GroupTagged:
		return "tagged"
	default:
		return fmt.Sprintf("GroupKind(%d)", int(k))
	}
}

// TaggedForm pairs a tag with the descriptor registered under it.
type TaggedForm struct {
	Tag  string
	Form FormDescriptor
}

// FormGroup is the form shape of one step: Single(descriptor) or
// Tagged(ordered tag -> descriptor). The zero value is empty and rejected by
// the catalog builder.
type FormGroup struct {
	kind   GroupKind
	single FormDescriptor
	tagged []TaggedForm
}

// Single returns a group backed by one form descriptor.
func Single(d FormDescriptor) FormGroup {
	return FormGroup{kind: GroupSingle, single: d}
}

// Tagged returns a multi-form group. Tag order is preserved.
func Tagged(forms ...TaggedForm) FormGroup {
	cp := make([]TaggedForm, len(forms))
	copy(cp, forms)
	return FormGroup{kind: GroupTagged, tagged: cp}
}

// Tag is shorthand for building a TaggedForm.
func Tag(tag string, d FormDescriptor) TaggedForm {
	return TaggedForm{Tag: tag, Form: d}
}

func (g FormGroup) Kind() GroupKind { return g.kind }

// IsZero reports whether the group has no descriptors at all.
func (g FormGroup) IsZero() bool {
	return g.single == nil && len(g.tagged) == 0
}

// Form returns the descriptor of a single group, or nil for tagged groups.
func (g FormGroup) Form() FormDescriptor {
	if g.kind != GroupSingle {
		return nil
	}
	return g.single
}

// Tags returns the tags of a tagged group in declaration order.
func (g FormGroup) Tags() []string {
	tags := make([]string, 0, len(g.tagged))
	for _, t := range g.tagged {
		tags = append(tags, t.Tag)
	}
	return tags
}

// Descriptor returns the descriptor registered under tag.
func (g FormGroup) Descriptor(tag string) (FormDescriptor, bool) {
	for _, t := range g.tagged {
		if t.Tag == tag {
			return t.Form, true
		}
	}
	return nil, false
}

// Entries returns the (tag, descriptor) pairs of the group. A single group
// yields one entry with an empty tag.
func (g FormGroup) Entries() []TaggedForm {
	if g.kind == GroupSingle {
		if g.single == nil {
			return nil
		}
		return []TaggedForm{{Form: g.single}}
	}
	cp := make([]TaggedForm, len(g.tagged))
	copy(cp, g.tagged)
	return cp
}

// AcceptsFiles reports whether any descriptor in the group takes uploads.
func (g FormGroup) AcceptsFiles() bool {
	for _, e := range g.Entries() {
		if e.Form != nil && e.Form.AcceptsFiles() {
			return true
		}
	}
	return false
}

// BoundGroup is a FormGroup instantiated for one request: the forms of a
// step, bound to the same data, in tag order.
type BoundGroup struct {
	Step  string
	Kind  GroupKind
	Tags  []string
	Forms []Form
}

// IsBound reports whether the forms carry submitted data.
func (b BoundGroup) IsBound() bool {
	if len(b.Forms) == 0 {
		return false
	}
	for _, f := range b.Forms {
		if !f.IsBound() {
			return false
		}
	}
	return true
}

// IsValid validates every form of the group. All forms are validated, even
// after the first failure, so that each one collects its errors.
func (b BoundGroup) IsValid() bool {
	if len(b.Forms) == 0 {
		return false
	}
	valid := true
	for _, f := range b.Forms {
		if !f.IsValid() {
			valid = false
		}
	}
	return valid
}

// Form returns the form of a single group, or the form registered under
// the first tag.
func (b BoundGroup) Form() Form {
	if len(b.Forms) == 0 {
		return nil
	}
	return b.Forms[0]
}

// ByTag returns the form registered under tag.
func (b BoundGroup) ByTag(tag string) (Form, bool) {
	for i, t := range b.Tags {
		if t == tag && i < len(b.Forms) {
			return b.Forms[i], true
		}
	}
	return nil, false
}

// Errors collects field errors. Errors of tagged forms are keyed
// "<tag>-<field>".
func (b BoundGroup) Errors() map[string][]string {
	out := make(map[string][]string)
	for i, f := range b.Forms {
		prefix := ""
		if b.Kind == GroupTagged && i < len(b.Tags) {
			prefix = b.Tags[i] + "-"
		}
		for field, errs := range f.Errors() {
			out[prefix+field] = append(out[prefix+field], errs...)
		}
	}
	return out
}
