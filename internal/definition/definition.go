// Package definition loads wizard definitions from YAML. A definition names
// the steps, their forms and the conditions that switch steps on and off,
// and compiles into the Spec and Conditions of an api.Config.
//
//	name: signup
//	steps:
//	  - name: contact
//	    form:
//	      name: Contact
//	      fields:
//	        - {name: email, kind: email}
//	        - {name: newsletter, kind: bool, required: false}
//	  - name: address
//	    substeps:
//	      - name: home
//	        form: {name: Home, fields: [{name: street, kind: text}]}
//	conditions:
//	  "address|home":
//	    field: {step: contact, name: newsletter, equals: true}
package definition

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML document.
type Definition struct {
	Name        string                  `yaml:"name"`
	Separator   string                  `yaml:"separator,omitempty"`
	MergeTagged bool                    `yaml:"merge_tagged,omitempty"`
	Steps       []StepDef               `yaml:"steps"`
	Conditions  map[string]ConditionDef `yaml:"conditions,omitempty"`
}

// StepDef declares a leaf step (form, forms or formset) or a page with
// substeps. Exactly one of the four must be set.
type StepDef struct {
	Name     string      `yaml:"name,omitempty"`
	Form     *FormDef    `yaml:"form,omitempty"`
	Forms    []TaggedDef `yaml:"forms,omitempty"`
	FormSet  *FormSetDef `yaml:"formset,omitempty"`
	Substeps []StepDef   `yaml:"substeps,omitempty"`
}

// TaggedDef is one form of a multi-form step.
type TaggedDef struct {
	Tag  string  `yaml:"tag"`
	Form FormDef `yaml:"form"`
}

// FormSetDef repeats a form.
type FormSetDef struct {
	Form   FormDef `yaml:"form"`
	Extra  int     `yaml:"extra,omitempty"`
	Min    int     `yaml:"min,omitempty"`
	Max    int     `yaml:"max,omitempty"`
	Prefix string  `yaml:"prefix,omitempty"`
}

type FormDef struct {
	Name   string     `yaml:"name"`
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef declares a form field. Fields are required unless Required is
// set to false.
type FieldDef struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Label     string   `yaml:"label,omitempty"`
	Required  *bool    `yaml:"required,omitempty"`
	MaxLength int      `yaml:"max_length,omitempty"`
	Min       *int64   `yaml:"min,omitempty"`
	Max       *int64   `yaml:"max,omitempty"`
	Choices   []string `yaml:"choices,omitempty"`
	Initial   any      `yaml:"initial,omitempty"`
}

// ConditionDef is either static (Active) or a field comparison (Field).
type ConditionDef struct {
	Active *bool     `yaml:"active,omitempty"`
	Field  *FieldRef `yaml:"field,omitempty"`
	Not    bool      `yaml:"not,omitempty"`
}

// FieldRef compares one cleaned field of another step with a value.
type FieldRef struct {
	Step   string `yaml:"step"`
	Tag    string `yaml:"tag,omitempty"`
	Name   string `yaml:"name"`
	Equals any    `yaml:"equals"`
}

// Parse decodes a definition from YAML bytes.
func Parse(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("definition: payload is empty")
	}
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("definition: decode: %w", err)
	}
	return &def, nil
}

// Load reads a definition from r.
func Load(r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("definition: read: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a definition from path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("definition: %s: %w", path, err)
	}
	return def, nil
}
