// Package forms provides a small declarative form implementation of the
// wizard's form contract: a Schema lists typed fields, and every request
// binds the schema to submitted values.
package forms

import (
	"fmt"
	"maps"

	"github.com/petrijr/formflow/pkg/api"
)

// NonFieldErrors is the error key used for form-wide check failures.
const NonFieldErrors = "__all__"

// Check validates a form as a whole after every field cleaned successfully.
type Check func(cleaned map[string]any) error

// Schema is an immutable form declaration. It implements
// api.FormDescriptor.
type Schema struct {
	name   string
	fields []Field
	checks []Check
}

var _ api.FormDescriptor = (*Schema)(nil)

// New declares a form. It panics on an empty name, an unknown field kind or
// a duplicate field name.
func New(name string, fields ...Field) *Schema {
	if name == "" {
		panic("forms: schema name must not be empty")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			panic(fmt.Sprintf("forms: schema %q has a field without a name", name))
		}
		if !f.Kind.Valid() {
			panic(fmt.Sprintf("forms: field %q of schema %q has unknown kind %q", f.Name, name, f.Kind))
		}
		if seen[f.Name] {
			panic(fmt.Sprintf("forms: schema %q declares field %q twice", name, f.Name))
		}
		seen[f.Name] = true
	}
	return &Schema{name: name, fields: append([]Field(nil), fields...)}
}

// WithCheck returns a copy of the schema with an additional form-wide check.
func (s *Schema) WithCheck(c Check) *Schema {
	cp := *s
	cp.checks = append(append([]Check(nil), s.checks...), c)
	return &cp
}

func (s *Schema) Name() string { return s.name }

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// AcceptsFiles reports whether the schema has a file field.
func (s *Schema) AcceptsFiles() bool {
	for _, f := range s.fields {
		if f.Kind == KindFile {
			return true
		}
	}
	return false
}

// NewForm binds the schema. Values of a map[string]any instance seed the
// initial values; explicit initial values take precedence.
func (s *Schema) NewForm(b api.Binding) api.Form {
	initial := make(map[string]any)
	if inst, ok := b.Instance.(map[string]any); ok {
		maps.Copy(initial, inst)
	}
	maps.Copy(initial, b.Initial)
	return &Form{schema: s, data: b.Data, files: b.Files, initial: initial, instance: b.Instance}
}
