package api

import (
	"net/url"
)

// Values holds raw submitted field data. Every field may carry several
// values, the way HTML forms and flattened JSON bodies deliver them.
type Values = url.Values

// File is a reference to an uploaded file that has already been written to
// a FileStorage. Only the reference is persisted with the step data.
type File struct {
	Field       string
	Name        string
	ContentType string
	Size        int64
	Path        string
}

// Files maps field names to stored file references.
type Files map[string]File

// Binding carries everything a form instance is constructed from.
// A nil Data means the form is unbound and will never validate.
type Binding struct {
	Step     string
	Tag      string
	Data     Values
	Files    Files
	Initial  map[string]any
	Instance any
}

// Form is the validatable unit the wizard consumes. Field-level validation
// rules belong to the implementation; the wizard only relies on this
// contract.
type Form interface {
	// IsBound reports whether the form was constructed with submitted data.
	IsBound() bool
	// IsValid validates the bound data. Unbound forms are never valid.
	IsValid() bool
	// CleanedData returns the coerced field values. Only meaningful after
	// IsValid returned true.
	CleanedData() map[string]any
	// Errors returns field errors keyed by field name.
	Errors() map[string][]string
}

// ListForm is implemented by forms whose cleaned data is a list of records,
// such as formsets.
type ListForm interface {
	Form
	CleanedList() []map[string]any
}

// Describer is implemented by forms that can describe themselves for a
// client-side renderer.
type Describer interface {
	Describe() any
}

// FormDescriptor creates form instances for a step.
type FormDescriptor interface {
	// Name identifies the descriptor in logs and definitions.
	Name() string
	// NewForm returns a form bound to b.
	NewForm(b Binding) Form
	// AcceptsFiles reports whether the form has file upload fields.
	AcceptsFiles() bool
}
