package wizard

import (
	"github.com/petrijr/formflow/pkg/api"
)

// liveStep is a submission that has not been stored, rendered in place of
// the stored data of its step.
type liveStep struct {
	group api.BoundGroup
	data  api.Values
}

// project renders the wizard state with current as the cursor. When done
// is set the cursor is reported as null.
func (s *session) project(current string, done bool, live *liveStep) (*api.Snapshot, error) {
	nav := s.navigator()
	seq := nav.all()
	_, valid := s.revalidateAll(seq)

	if current == "" {
		current = nav.first()
	}

	snap := &api.Snapshot{
		Done:      done,
		Valid:     valid,
		Structure: seq,
		Steps:     make(map[string]api.StepProjection, len(seq)),
	}
	if !done {
		snap.CurrentStep = &current
	}

	for _, step := range seq {
		var p api.StepProjection
		var err error
		if live != nil && live.group.Step == step {
			p, err = s.projectStep(step, live.group, live.data)
		} else {
			p, err = s.projectStep(step, s.storedGroup(step), s.data[step])
		}
		if err != nil {
			return nil, err
		}
		snap.Steps[step] = p
	}
	return snap, nil
}

func (s *session) projectStep(step string, g api.BoundGroup, raw api.Values) (api.StepProjection, error) {
	form, err := s.w.renderer.RenderForm(step, g)
	if err != nil {
		return api.StepProjection{}, err
	}
	preview, err := s.w.renderer.RenderPreview(step, g)
	if err != nil {
		return api.StepProjection{}, err
	}

	p := api.StepProjection{
		FormID:  FormID(step),
		Form:    form,
		Preview: preview,
		Valid:   g.IsBound() && g.IsValid(),
	}
	if p.Valid {
		p.Data = s.encodeMap(s.cleanedData(g))
	} else {
		p.Data = rawData(raw)
	}
	return p, nil
}

// rawData turns submitted values into JSON-able data: a single value as a
// string, several as a list.
func rawData(raw api.Values) map[string]any {
	out := make(map[string]any, len(raw))
	for k, vs := range raw {
		switch len(vs) {
		case 0:
		case 1:
			out[k] = vs[0]
		default:
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

func (s *session) encodeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = s.encodeValue(v)
	}
	return out
}

func (s *session) encodeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return s.encodeMap(t)
	case []map[string]any:
		list := make([]any, 0, len(t))
		for _, m := range t {
			list = append(list, s.encodeMap(m))
		}
		return list
	case []any:
		list := make([]any, 0, len(t))
		for _, e := range t {
			list = append(list, s.encodeValue(e))
		}
		return list
	default:
		return s.w.encoder(v)
	}
}
