package wizard

import (
	"maps"

	"github.com/petrijr/formflow/pkg/api"
)

// formsetKeyPrefix namespaces the cleaned list of a formset step.
const formsetKeyPrefix = "formset-"

// buildGroup instantiates the forms of step bound to data and files. A nil
// data leaves the forms unbound. Every form of a tagged step sees the same
// data.
func (s *session) buildGroup(step string, data api.Values, files api.Files) api.BoundGroup {
	g, _ := s.cat.Group(step)
	bg := api.BoundGroup{Step: step, Kind: g.Kind()}
	for _, e := range g.Entries() {
		b := api.Binding{Step: step, Tag: e.Tag, Data: data, Files: files}
		if s.w.initial != nil {
			b.Initial = s.w.initial(step, e.Tag)
		}
		if s.w.instance != nil {
			b.Instance = s.w.instance(step, e.Tag)
		}
		if g.Kind() == api.GroupTagged {
			bg.Tags = append(bg.Tags, e.Tag)
		}
		bg.Forms = append(bg.Forms, e.Form.NewForm(b))
	}
	return bg
}

// storedGroup returns step's forms bound to the stored data. Groups are
// memoized until the step's data changes.
func (s *session) storedGroup(step string) api.BoundGroup {
	if g, ok := s.bound[step]; ok {
		return g
	}
	g := s.buildGroup(step, s.data[step], s.files[step])
	s.bound[step] = g
	return g
}

func (s *session) isStepValid(step string) bool {
	g := s.storedGroup(step)
	return g.IsBound() && g.IsValid()
}

// revalidateAll rebuilds every step of seq from stored data, in order, and
// stops at the first one that does not validate.
func (s *session) revalidateAll(seq []string) (string, bool) {
	for _, step := range seq {
		if !s.isStepValid(step) {
			return step, false
		}
	}
	return "", true
}

// cleanedData shapes the cleaned data of a bound group. Tagged steps keep
// each tag's data under the tag unless merging is configured, in which case
// later tags overwrite earlier ones on colliding field names.
func (s *session) cleanedData(g api.BoundGroup) map[string]any {
	out := make(map[string]any)
	if !g.IsBound() || !g.IsValid() {
		return out
	}
	if g.Kind != api.GroupTagged {
		return formCleanedData(g.Step, g.Form())
	}
	for i, f := range g.Forms {
		cleaned := formCleanedData(g.Step, f)
		if s.w.mergeTagged {
			maps.Copy(out, cleaned)
			continue
		}
		out[g.Tags[i]] = cleaned
	}
	return out
}

func formCleanedData(step string, f api.Form) map[string]any {
	if lf, ok := f.(api.ListForm); ok {
		return map[string]any{formsetKeyPrefix + step: lf.CleanedList()}
	}
	out := make(map[string]any)
	maps.Copy(out, f.CleanedData())
	return out
}

// CleanedDataForStep revalidates the stored data of step. Unknown,
// unanswered and invalid steps yield an empty map.
func (s *session) CleanedDataForStep(step string) map[string]any {
	if !s.cat.Contains(step) {
		return map[string]any{}
	}
	return s.cleanedData(s.storedGroup(step))
}

// AllCleanedData merges the cleaned data of every active step. Later steps
// win on colliding keys.
func (s *session) AllCleanedData() map[string]any {
	out := make(map[string]any)
	for _, step := range s.activeSequence() {
		maps.Copy(out, s.CleanedDataForStep(step))
	}
	return out
}

// AllCleanedDataByStep groups cleaned data by active step and leaves out
// steps without any.
func (s *session) AllCleanedDataByStep() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, step := range s.activeSequence() {
		if d := s.CleanedDataForStep(step); len(d) > 0 {
			out[step] = d
		}
	}
	return out
}
