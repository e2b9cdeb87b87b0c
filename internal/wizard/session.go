package wizard

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/petrijr/formflow/pkg/api"
)

// session serves one request. Reads come from the state loaded by Open;
// writes go to storage first and then to the loaded copy, so a failed write
// leaves both unchanged.
type session struct {
	w     *wizardImpl
	cat   *api.Catalog
	store api.Storage

	current string
	data    map[string]api.Values
	files   map[string]api.Files
	extra   map[string]any

	bound map[string]api.BoundGroup
	phase api.Phase
}

var (
	_ api.Session       = (*session)(nil)
	_ api.StateAccessor = (*session)(nil)
)

func (s *session) View(ctx context.Context, step string) (*api.Snapshot, error) {
	nav := s.navigator()
	if step == "" {
		step = s.current
	}
	if !nav.contains(step) {
		step = nav.first()
	}
	if err := s.moveTo(ctx, step); err != nil {
		return nil, err
	}
	return s.project(step, false, nil)
}

// Data reports the whole wizard. Once the last step was submitted the
// cursor is cleared, and it stays null here even while an earlier step no
// longer validates.
func (s *session) Data(ctx context.Context) (*api.Snapshot, error) {
	_, done := s.revalidateAll(s.activeSequence())
	snap, err := s.project(s.current, done, nil)
	if err != nil {
		return nil, err
	}
	if s.current == "" && len(s.data) > 0 {
		snap.CurrentStep = nil
	}
	return snap, nil
}

func (s *session) Submit(ctx context.Context, step string, data api.Values, files api.Files) (*api.Snapshot, error) {
	if !s.navigator().contains(step) {
		return nil, &api.NavigationError{Op: "submit", Step: step, Reason: "unknown step"}
	}
	if err := s.moveTo(ctx, step); err != nil {
		return nil, err
	}
	if data == nil {
		data = api.Values{}
	}

	g := s.buildGroup(step, data, files)
	valid := g.IsValid()
	errs := g.Errors()
	s.w.observer.OnStepSubmitted(ctx, s.w.name, step, valid, errs)

	if !valid {
		snap, err := s.project(step, false, &liveStep{group: g, data: data})
		if err != nil {
			return nil, err
		}
		return nil, &api.ValidationError{Step: step, Errors: errs, Snapshot: snap}
	}

	if err := s.storeStep(ctx, step, data, files); err != nil {
		return nil, err
	}

	// The stored answer may have changed which steps follow.
	nav := s.navigator()
	done := step == nav.last()
	next := ""
	if !done {
		var err error
		if next, err = nav.next(step); err != nil {
			next = nav.first()
		}
	}
	if err := s.moveTo(ctx, next); err != nil {
		return nil, err
	}
	return s.project(next, done, nil)
}

func (s *session) Goto(ctx context.Context, step string) (*api.Snapshot, error) {
	if step == "" {
		return nil, &api.NavigationError{Op: "goto", Reason: "step is not defined"}
	}
	if !s.navigator().contains(step) {
		return nil, &api.NavigationError{Op: "goto", Step: step, Reason: "unknown step"}
	}
	if err := s.moveTo(ctx, step); err != nil {
		return nil, err
	}
	return s.project(step, false, nil)
}

func (s *session) Prev(ctx context.Context) (*api.Snapshot, error) {
	step, err := s.navigator().prev(s.CurrentStep())
	if err != nil {
		return nil, err
	}
	if err := s.moveTo(ctx, step); err != nil {
		return nil, err
	}
	return s.project(step, false, nil)
}

func (s *session) Next(ctx context.Context) (*api.Snapshot, error) {
	step, err := s.navigator().next(s.CurrentStep())
	if err != nil {
		return nil, err
	}
	if err := s.moveTo(ctx, step); err != nil {
		return nil, err
	}
	return s.project(step, false, nil)
}

// Commit revalidates the active sequence and hands the result to the done
// handler. The session is reset only after the handler succeeded.
func (s *session) Commit(ctx context.Context) (any, error) {
	start := time.Now()
	s.phase = api.PhaseCommitting

	seq := s.activeSequence()
	if failing, ok := s.revalidateAll(seq); !ok {
		s.phase = ""
		if err := s.moveTo(ctx, failing); err != nil {
			return nil, err
		}
		s.w.observer.OnCommitRejected(ctx, s.w.name, failing)
		snap, err := s.project(failing, false, nil)
		if err != nil {
			return nil, err
		}
		return nil, &api.StaleStateError{Step: failing, Snapshot: snap}
	}

	result, err := s.w.done(ctx, s.completion(seq))
	if err != nil {
		s.phase = ""
		s.w.observer.OnCommitFailed(ctx, s.w.name, err)
		return nil, err
	}

	s.phase = api.PhaseDone
	s.w.observer.OnCommitCompleted(ctx, s.w.name, len(seq), time.Since(start))
	if err := s.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset after commit: %w", err)
	}
	return result, nil
}

func (s *session) completion(seq []string) *api.Completion {
	c := &api.Completion{
		Steps:       append([]string(nil), seq...),
		Forms:       make([]api.BoundGroup, 0, len(seq)),
		FormDict:    make(map[string]map[string]api.Form),
		CleanedData: make(map[string]map[string]any, len(seq)),
		All:         make(map[string]any),
	}
	for _, step := range seq {
		g := s.storedGroup(step)
		c.Forms = append(c.Forms, g)
		if g.Kind == api.GroupTagged {
			byTag := make(map[string]api.Form, len(g.Forms))
			for i, f := range g.Forms {
				byTag[g.Tags[i]] = f
			}
			c.FormDict[step] = byTag
		}
		cleaned := s.cleanedData(g)
		c.CleanedData[step] = cleaned
		maps.Copy(c.All, cleaned)
	}
	return c
}

func (s *session) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset storage: %w", err)
	}
	s.current = ""
	s.data = make(map[string]api.Values)
	s.files = make(map[string]api.Files)
	s.extra = nil
	s.bound = make(map[string]api.BoundGroup)
	s.phase = ""
	s.w.observer.OnReset(ctx, s.w.name)
	return nil
}

// Phase derives the lifecycle position from the loaded state.
func (s *session) Phase() api.Phase {
	if s.phase != "" {
		return s.phase
	}
	if len(s.data) == 0 && (s.current == "" || s.current == s.cat.First()) {
		return api.PhasePristine
	}
	return api.PhaseInProgress
}

func (s *session) ActiveSteps() []string {
	return s.activeSequence()
}

// CurrentStep returns the stored cursor, or the first active step when
// none is stored.
func (s *session) CurrentStep() string {
	if s.current == "" {
		return s.navigator().first()
	}
	return s.current
}

func (s *session) ExtraData() map[string]any {
	out := make(map[string]any, len(s.extra))
	maps.Copy(out, s.extra)
	return out
}

func (s *session) SetExtraData(ctx context.Context, extra map[string]any) error {
	if err := s.store.SetExtraData(ctx, extra); err != nil {
		return fmt.Errorf("store extra data: %w", err)
	}
	s.extra = maps.Clone(extra)
	return nil
}

func (s *session) moveTo(ctx context.Context, step string) error {
	if step == s.current {
		return nil
	}
	if err := s.store.SetCurrentStep(ctx, step); err != nil {
		return fmt.Errorf("store current step: %w", err)
	}
	from := s.current
	s.current = step
	s.w.observer.OnNavigate(ctx, s.w.name, from, step)
	return nil
}

func (s *session) storeStep(ctx context.Context, step string, data api.Values, files api.Files) error {
	if err := s.store.SetStepData(ctx, step, data); err != nil {
		return fmt.Errorf("store data of step %q: %w", step, err)
	}
	if err := s.store.SetStepFiles(ctx, step, files); err != nil {
		return fmt.Errorf("store files of step %q: %w", step, err)
	}
	s.data[step] = data
	if files != nil {
		s.files[step] = files
	} else {
		delete(s.files, step)
	}
	delete(s.bound, step)
	return nil
}
