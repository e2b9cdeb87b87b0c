package definition

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/petrijr/formflow/internal/forms"
	"github.com/petrijr/formflow/pkg/api"
)

// Config compiles the definition into a wizard configuration. Only the
// declarative parts are filled; hooks, storage and observers are left to
// the caller.
func (d *Definition) Config() (api.Config, error) {
	spec, err := d.Spec()
	if err != nil {
		return api.Config{}, err
	}
	conds, err := d.CompileConditions()
	if err != nil {
		return api.Config{}, err
	}
	return api.Config{
		Name:        d.Name,
		Steps:       spec,
		Conditions:  conds,
		Separator:   d.Separator,
		MergeTagged: d.MergeTagged,
	}, nil
}

// Spec compiles the step list. Structural rules such as nesting depth and
// name collisions are left to the catalog builder.
func (d *Definition) Spec() (api.Spec, error) {
	spec := make(api.Spec, 0, len(d.Steps))
	for i, s := range d.Steps {
		ss, err := compileStep(s)
		if err != nil {
			return nil, api.Configurationf("definition: step %d (%s): %v", i, s.Name, err)
		}
		spec = append(spec, ss)
	}
	return spec, nil
}

func compileStep(s StepDef) (api.StepSpec, error) {
	out := api.StepSpec{Name: s.Name}

	set := 0
	for _, b := range []bool{s.Form != nil, len(s.Forms) > 0, s.FormSet != nil, len(s.Substeps) > 0} {
		if b {
			set++
		}
	}
	if set != 1 {
		return out, fmt.Errorf("exactly one of form, forms, formset or substeps is required")
	}

	switch {
	case s.Form != nil:
		schema, err := compileForm(*s.Form)
		if err != nil {
			return out, err
		}
		out.Group = api.Single(schema)

	case len(s.Forms) > 0:
		tagged := make([]api.TaggedForm, 0, len(s.Forms))
		for _, t := range s.Forms {
			schema, err := compileForm(t.Form)
			if err != nil {
				return out, fmt.Errorf("tag %q: %w", t.Tag, err)
			}
			tagged = append(tagged, api.Tag(t.Tag, schema))
		}
		out.Group = api.Tagged(tagged...)

	case s.FormSet != nil:
		schema, err := compileForm(s.FormSet.Form)
		if err != nil {
			return out, err
		}
		fs := forms.NewFormSet(schema, s.FormSet.Extra).WithBounds(s.FormSet.Min, s.FormSet.Max)
		if s.FormSet.Prefix != "" {
			fs = fs.WithPrefix(s.FormSet.Prefix)
		}
		out.Group = api.Single(fs)

	default:
		for _, sub := range s.Substeps {
			ss, err := compileStep(sub)
			if err != nil {
				return out, fmt.Errorf("substep %s: %w", sub.Name, err)
			}
			out.Substeps = append(out.Substeps, ss)
		}
	}
	return out, nil
}

func compileForm(f FormDef) (*forms.Schema, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("form name is required")
	}
	fields := make([]forms.Field, 0, len(f.Fields))
	seen := make(map[string]bool, len(f.Fields))
	for _, fd := range f.Fields {
		field, err := compileField(fd)
		if err != nil {
			return nil, fmt.Errorf("form %s: %w", f.Name, err)
		}
		if seen[field.Name] {
			return nil, fmt.Errorf("form %s: duplicate field %q", f.Name, field.Name)
		}
		seen[field.Name] = true
		fields = append(fields, field)
	}
	return forms.New(f.Name, fields...), nil
}

func compileField(fd FieldDef) (forms.Field, error) {
	if fd.Name == "" {
		return forms.Field{}, fmt.Errorf("field without a name")
	}
	kind := forms.Kind(fd.Kind)
	if fd.Kind == "" {
		kind = forms.KindText
	}
	if !kind.Valid() {
		return forms.Field{}, fmt.Errorf("field %q: unknown kind %q", fd.Name, fd.Kind)
	}
	hasChoices := kind == forms.KindChoice || kind == forms.KindMultiChoice
	if hasChoices && len(fd.Choices) == 0 {
		return forms.Field{}, fmt.Errorf("field %q: %s needs choices", fd.Name, kind)
	}

	field := forms.Field{
		Name:      fd.Name,
		Kind:      kind,
		Label:     fd.Label,
		Required:  fd.Required == nil || *fd.Required,
		MaxLength: fd.MaxLength,
		Min:       fd.Min,
		Max:       fd.Max,
		Initial:   fd.Initial,
	}
	for _, c := range fd.Choices {
		field.Choices = append(field.Choices, forms.Choice{Value: c, Label: c})
	}
	return field, nil
}

// CompileConditions turns condition definitions into api.Conditions.
func (d *Definition) CompileConditions() (api.Conditions, error) {
	if len(d.Conditions) == 0 {
		return nil, nil
	}
	out := make(api.Conditions, len(d.Conditions))
	for step, c := range d.Conditions {
		switch {
		case c.Active != nil && c.Field != nil:
			return nil, api.Configurationf("definition: condition %q: active and field are mutually exclusive", step)
		case c.Active != nil:
			out[step] = api.When(*c.Active != c.Not)
		case c.Field != nil:
			if c.Field.Step == "" || c.Field.Name == "" {
				return nil, api.Configurationf("definition: condition %q: field needs step and name", step)
			}
			p := fieldMatches(*c.Field)
			if c.Not {
				p = api.Not(p)
			}
			out[step] = api.If(p)
		default:
			return nil, api.Configurationf("definition: condition %q: one of active or field is required", step)
		}
	}
	return out, nil
}

// fieldMatches compares a cleaned value with a YAML scalar. Numbers compare
// as integers where possible and dates as ISO dates, so that `equals: 3`
// matches an int field and `equals: 2024-01-02` a date field.
func fieldMatches(ref FieldRef) api.Predicate {
	want := normalize(ref.Equals)
	return func(s api.StateAccessor) bool {
		data := s.CleanedDataForStep(ref.Step)
		if ref.Tag != "" {
			nested, ok := data[ref.Tag].(map[string]any)
			if !ok {
				return false
			}
			data = nested
		}
		v, ok := data[ref.Name]
		return ok && reflect.DeepEqual(normalize(v), want)
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		if t == math.Trunc(t) {
			return int64(t)
		}
		return t
	case time.Time:
		return t.Format(time.DateOnly)
	case []string:
		out := make([]any, 0, len(t))
		for _, e := range t {
			out = append(out, e)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			out = append(out, normalize(e))
		}
		return out
	default:
		return v
	}
}
