package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// InitialFunc returns initial field values for the form registered at step
// (and tag, for tagged steps).
type InitialFunc func(step, tag string) map[string]any

// InstanceFunc returns the object a form at step/tag edits, if any.
type InstanceFunc func(step, tag string) any

// DoneHandler receives the revalidated data of a finished wizard. Its result
// is handed back to the caller of Commit unchanged.
type DoneHandler func(ctx context.Context, c *Completion) (any, error)

// ValueEncoder converts a cleaned field value into something encoding/json
// can represent.
type ValueEncoder func(v any) any

// Renderer turns bound forms into opaque, JSON-able payloads.
type Renderer interface {
	RenderForm(step string, g BoundGroup) (any, error)
	RenderPreview(step string, g BoundGroup) (any, error)
}

// DefaultRenderer describes forms that implement Describer and renders a
// plain-text preview of valid steps.
type DefaultRenderer struct {
	Encode ValueEncoder
}

var _ Renderer = DefaultRenderer{}

func (r DefaultRenderer) RenderForm(step string, g BoundGroup) (any, error) {
	if g.Kind == GroupTagged {
		out := make(map[string]any, len(g.Forms))
		for i, f := range g.Forms {
			if i < len(g.Tags) {
				out[g.Tags[i]] = describe(f)
			}
		}
		return out, nil
	}
	return describe(g.Form()), nil
}

func (r DefaultRenderer) RenderPreview(step string, g BoundGroup) (any, error) {
	if !g.IsBound() || !g.IsValid() {
		return nil, nil
	}
	enc := r.Encode
	if enc == nil {
		enc = DefaultValueEncoder
	}
	data := make(map[string]any)
	for _, f := range g.Forms {
		for k, v := range f.CleanedData() {
			data[k] = enc(v)
		}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("STEP: %s, DATA: %s", step, raw), nil
}

func describe(f Form) any {
	if f == nil {
		return nil
	}
	if d, ok := f.(Describer); ok {
		return d.Describe()
	}
	return map[string]any{"errors": f.Errors()}
}

// DefaultValueEncoder renders dates as ISO dates (timestamps as RFC 3339),
// file references as their names and everything else as is.
func DefaultValueEncoder(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case File:
		return t.Name
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}
