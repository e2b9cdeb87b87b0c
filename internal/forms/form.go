package forms

import (
	"maps"

	"github.com/petrijr/formflow/pkg/api"
)

// Form is a Schema bound to one request's data.
type Form struct {
	schema   *Schema
	prefix   string
	data     api.Values
	files    api.Files
	initial  map[string]any
	instance any

	cleaned map[string]any
	errors  map[string][]string
	done    bool
}

var (
	_ api.Form      = (*Form)(nil)
	_ api.Describer = (*Form)(nil)
)

func (f *Form) IsBound() bool { return f.data != nil }

func (f *Form) IsValid() bool {
	if !f.IsBound() {
		return false
	}
	f.fullClean()
	return len(f.errors) == 0
}

func (f *Form) CleanedData() map[string]any {
	if !f.IsValid() {
		return map[string]any{}
	}
	return maps.Clone(f.cleaned)
}

func (f *Form) Errors() map[string][]string {
	if !f.IsBound() {
		return map[string][]string{}
	}
	f.fullClean()
	out := make(map[string][]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Instance returns the object the form was bound to edit, if any.
func (f *Form) Instance() any { return f.instance }

func (f *Form) key(name string) string { return f.prefix + name }

func (f *Form) fullClean() {
	if f.done {
		return
	}
	f.done = true
	f.cleaned = make(map[string]any, len(f.schema.fields))
	f.errors = make(map[string][]string)

	for _, field := range f.schema.fields {
		var file *api.File
		if fl, ok := f.files[f.key(field.Name)]; ok {
			file = &fl
		}
		v, errs := field.clean(f.data[f.key(field.Name)], file)
		if len(errs) > 0 {
			f.errors[field.Name] = errs
			continue
		}
		f.cleaned[field.Name] = v
	}

	if len(f.errors) > 0 {
		return
	}
	for _, check := range f.schema.checks {
		if err := check(maps.Clone(f.cleaned)); err != nil {
			f.errors[NonFieldErrors] = append(f.errors[NonFieldErrors], err.Error())
		}
	}
}

// FieldView describes one field for a client-side renderer.
type FieldView struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label,omitempty"`
	Required bool     `json:"required"`
	Choices  []Choice `json:"choices,omitempty"`
	Value    any      `json:"value,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// View is the client-side description of a form.
type View struct {
	Name   string              `json:"name"`
	Fields []FieldView         `json:"fields"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// Describe returns the form's View. Bound forms show the submitted values,
// unbound forms their initial values.
func (f *Form) Describe() any {
	errs := f.Errors()
	v := View{Name: f.schema.name, Fields: make([]FieldView, 0, len(f.schema.fields))}
	for _, field := range f.schema.fields {
		fv := FieldView{
			Name:     field.Name,
			Kind:     field.Kind,
			Label:    field.Label,
			Required: field.Required,
			Choices:  field.Choices,
			Errors:   errs[field.Name],
		}
		fv.Value = f.displayValue(field)
		v.Fields = append(v.Fields, fv)
	}
	if nf := errs[NonFieldErrors]; len(nf) > 0 {
		v.Errors = map[string][]string{NonFieldErrors: nf}
	}
	return v
}

func (f *Form) displayValue(field Field) any {
	if !f.IsBound() {
		if v, ok := f.initial[field.Name]; ok {
			return v
		}
		return field.Initial
	}
	if field.Kind == KindFile {
		if fl, ok := f.files[f.key(field.Name)]; ok {
			return fl.Name
		}
		return nil
	}
	raw := f.data[f.key(field.Name)]
	switch {
	case len(raw) == 0:
		return nil
	case field.Kind == KindMultiChoice:
		return raw
	default:
		return raw[0]
	}
}
