package forms

import (
	"fmt"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/petrijr/formflow/pkg/api"
)

// Kind selects how a field cleans its raw input.
type Kind string

const (
	KindText        Kind = "text"
	KindBool        Kind = "bool"
	KindInt         Kind = "int"
	KindEmail       Kind = "email"
	KindChoice      Kind = "choice"
	KindMultiChoice Kind = "multichoice"
	KindDate        Kind = "date"
	KindFile        Kind = "file"
)

// Valid reports whether k is a known field kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindBool, KindInt, KindEmail, KindChoice, KindMultiChoice, KindDate, KindFile:
		return true
	}
	return false
}

// Field error messages.
const (
	MsgRequired     = "This field is required."
	MsgInvalidInt   = "Enter a whole number."
	MsgInvalidEmail = "Enter a valid email address."
	MsgInvalidDate  = "Enter a valid date."
)

// Choice is one option of a choice field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field declares one input of a Schema.
//
// Cleaned values by kind: text, email and choice clean to string; bool to
// bool; int to int64; multichoice to []string; date to time.Time; file to
// api.File. Optional int, date and file fields clean to nil when left
// empty.
type Field struct {
	Name     string
	Kind     Kind
	Label    string
	Required bool
	// MaxLength limits text and email fields. Zero means no limit.
	MaxLength int
	Min       *int64
	Max       *int64
	Choices   []Choice
	Initial   any
}

// Text returns a required text field.
func Text(name string, maxLength int) Field {
	return Field{Name: name, Kind: KindText, Required: true, MaxLength: maxLength}
}

// Bool returns a required checkbox. Like an HTML checkbox a required bool
// only validates when it is checked.
func Bool(name string) Field {
	return Field{Name: name, Kind: KindBool, Required: true}
}

// Int returns a required integer field.
func Int(name string) Field {
	return Field{Name: name, Kind: KindInt, Required: true}
}

// Email returns a required email field.
func Email(name string) Field {
	return Field{Name: name, Kind: KindEmail, Required: true}
}

// Date returns a required ISO date field.
func Date(name string) Field {
	return Field{Name: name, Kind: KindDate, Required: true}
}

// FileUpload returns a required file field.
func FileUpload(name string) Field {
	return Field{Name: name, Kind: KindFile, Required: true}
}

// Select returns a required single choice field over values.
func Select(name string, values ...string) Field {
	return Field{Name: name, Kind: KindChoice, Required: true, Choices: choicesOf(values)}
}

// MultiSelect returns a required multiple choice field over values.
func MultiSelect(name string, values ...string) Field {
	return Field{Name: name, Kind: KindMultiChoice, Required: true, Choices: choicesOf(values)}
}

// Optional returns a copy of f that accepts empty input.
func (f Field) Optional() Field {
	f.Required = false
	return f
}

// Labeled returns a copy of f with the given label.
func (f Field) Labeled(label string) Field {
	f.Label = label
	return f
}

// Between returns a copy of an int field with inclusive bounds.
func (f Field) Between(min, max int64) Field {
	f.Min = &min
	f.Max = &max
	return f
}

func choicesOf(values []string) []Choice {
	out := make([]Choice, 0, len(values))
	for _, v := range values {
		out = append(out, Choice{Value: v, Label: v})
	}
	return out
}

func (f Field) hasChoice(v string) bool {
	return slices.ContainsFunc(f.Choices, func(c Choice) bool { return c.Value == v })
}

// clean converts raw input into the field's cleaned value.
func (f Field) clean(raw []string, file *api.File) (any, []string) {
	first := ""
	if len(raw) > 0 {
		first = strings.TrimSpace(raw[0])
	}

	switch f.Kind {
	case KindBool:
		v := parseBool(first)
		if f.Required && !v {
			return nil, []string{MsgRequired}
		}
		return v, nil

	case KindMultiChoice:
		values := make([]string, 0, len(raw))
		for _, r := range raw {
			if r = strings.TrimSpace(r); r != "" {
				values = append(values, r)
			}
		}
		if len(values) == 0 && f.Required {
			return nil, []string{MsgRequired}
		}
		for _, v := range values {
			if !f.hasChoice(v) {
				return nil, []string{fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v)}
			}
		}
		return values, nil

	case KindFile:
		if file == nil {
			if f.Required {
				return nil, []string{MsgRequired}
			}
			return nil, nil
		}
		return *file, nil
	}

	if first == "" {
		if f.Required {
			return nil, []string{MsgRequired}
		}
		switch f.Kind {
		case KindInt, KindDate:
			return nil, nil
		}
		return "", nil
	}

	switch f.Kind {
	case KindInt:
		n, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return nil, []string{MsgInvalidInt}
		}
		var errs []string
		if f.Min != nil && n < *f.Min {
			errs = append(errs, fmt.Sprintf("Ensure this value is greater than or equal to %d.", *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			errs = append(errs, fmt.Sprintf("Ensure this value is less than or equal to %d.", *f.Max))
		}
		if errs != nil {
			return nil, errs
		}
		return n, nil

	case KindDate:
		d, err := time.Parse(time.DateOnly, first)
		if err != nil {
			return nil, []string{MsgInvalidDate}
		}
		return d, nil

	case KindChoice:
		if !f.hasChoice(first) {
			return nil, []string{fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", first)}
		}
		return first, nil

	case KindEmail:
		addr, err := mail.ParseAddress(first)
		if err != nil || addr.Address != first {
			return nil, []string{MsgInvalidEmail}
		}
		if msg := f.checkLength(first); msg != "" {
			return nil, []string{msg}
		}
		return first, nil
	}

	if msg := f.checkLength(first); msg != "" {
		return nil, []string{msg}
	}
	return first, nil
}

func (f Field) checkLength(v string) string {
	if f.MaxLength > 0 && len([]rune(v)) > f.MaxLength {
		return fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", f.MaxLength, len([]rune(v)))
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}
