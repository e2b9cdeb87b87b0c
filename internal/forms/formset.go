package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/petrijr/formflow/pkg/api"
)

// DefaultFormSetPrefix prefixes the management and per-form keys of a
// formset: "form-TOTAL_FORMS", "form-0-name", ...
const DefaultFormSetPrefix = "form"

// FormSet repeats a Schema a variable number of times. It implements
// api.FormDescriptor; its bound forms implement api.ListForm.
type FormSet struct {
	schema *Schema
	prefix string
	min    int
	max    int
	extra  int
}

var _ api.FormDescriptor = (*FormSet)(nil)

// NewFormSet returns a formset over schema with extra blank forms shown
// when unbound.
func NewFormSet(schema *Schema, extra int) *FormSet {
	if schema == nil {
		panic("forms: formset schema must not be nil")
	}
	return &FormSet{schema: schema, prefix: DefaultFormSetPrefix, extra: extra}
}

// WithBounds returns a copy that requires between min and max forms. A zero
// max means no upper limit.
func (fs *FormSet) WithBounds(min, max int) *FormSet {
	cp := *fs
	cp.min, cp.max = min, max
	return &cp
}

// WithPrefix returns a copy using prefix instead of "form".
func (fs *FormSet) WithPrefix(prefix string) *FormSet {
	cp := *fs
	cp.prefix = prefix
	return &cp
}

func (fs *FormSet) Name() string       { return fs.schema.name + "_set" }
func (fs *FormSet) AcceptsFiles() bool { return fs.schema.AcceptsFiles() }

// TotalFormsKey is the management key holding the number of submitted forms.
func (fs *FormSet) TotalFormsKey() string { return fs.prefix + "-TOTAL_FORMS" }

func (fs *FormSet) NewForm(b api.Binding) api.Form {
	set := &SetForm{set: fs, bound: b.Data != nil}
	n := fs.extra
	if set.bound {
		n, set.countErr = fs.total(b.Data)
	}
	for i := 0; i < n; i++ {
		f := fs.schema.NewForm(api.Binding{
			Step:     b.Step,
			Tag:      b.Tag,
			Data:     b.Data,
			Files:    b.Files,
			Initial:  b.Initial,
			Instance: b.Instance,
		}).(*Form)
		f.prefix = fmt.Sprintf("%s-%d-", fs.prefix, i)
		set.forms = append(set.forms, f)
	}
	return set
}

func (fs *FormSet) total(data api.Values) (int, string) {
	raw := strings.TrimSpace(data.Get(fs.TotalFormsKey()))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, "ManagementForm data is missing or has been tampered with."
	}
	if n < fs.min {
		return n, fmt.Sprintf("Please submit at least %d forms.", fs.min)
	}
	if fs.max > 0 && n > fs.max {
		return fs.max, fmt.Sprintf("Please submit at most %d forms.", fs.max)
	}
	return n, ""
}

// SetForm is a bound formset.
type SetForm struct {
	set      *FormSet
	bound    bool
	forms    []*Form
	countErr string
}

var (
	_ api.ListForm  = (*SetForm)(nil)
	_ api.Describer = (*SetForm)(nil)
)

func (s *SetForm) IsBound() bool { return s.bound }

func (s *SetForm) IsValid() bool {
	if !s.bound || s.countErr != "" {
		return false
	}
	valid := true
	for _, f := range s.forms {
		if !f.IsValid() {
			valid = false
		}
	}
	return valid
}

// CleanedList returns the cleaned data of every form in order.
func (s *SetForm) CleanedList() []map[string]any {
	if !s.IsValid() {
		return nil
	}
	out := make([]map[string]any, 0, len(s.forms))
	for _, f := range s.forms {
		out = append(out, f.CleanedData())
	}
	return out
}

// CleanedData returns the list under the "forms" key.
func (s *SetForm) CleanedData() map[string]any {
	if !s.IsValid() {
		return map[string]any{}
	}
	return map[string]any{"forms": s.CleanedList()}
}

// Errors are keyed "<prefix>-<index>-<field>". Count violations are
// reported under NonFieldErrors.
func (s *SetForm) Errors() map[string][]string {
	out := make(map[string][]string)
	if !s.bound {
		return out
	}
	if s.countErr != "" {
		out[NonFieldErrors] = []string{s.countErr}
	}
	for _, f := range s.forms {
		for field, errs := range f.Errors() {
			out[f.prefix+field] = errs
		}
	}
	return out
}

// Describe returns the views of the member forms.
func (s *SetForm) Describe() any {
	views := make([]any, 0, len(s.forms))
	for _, f := range s.forms {
		views = append(views, f.Describe())
	}
	out := map[string]any{
		"name":        s.set.Name(),
		"total_forms": len(s.forms),
		"forms":       views,
	}
	if s.countErr != "" {
		out["errors"] = map[string][]string{NonFieldErrors: {s.countErr}}
	}
	return out
}
