package wizard

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/formflow/internal/forms"
	"github.com/petrijr/formflow/internal/persistence"
	"github.com/petrijr/formflow/pkg/api"
)

var (
	page1 = forms.New("Page1", forms.Text("name", 100), forms.Bool("thirsty"))
	page2 = forms.New("Page2", forms.Text("address1", 100), forms.Text("address2", 100))
	page3 = forms.New("Page3", forms.Text("random_crap", 100))
)

var (
	page1Data = api.Values{"name": {"test"}, "thirsty": {"True"}}
	page2Data = api.Values{"address1": {"Address 1"}, "address2": {"Address 2"}}
	page3Data = api.Values{"random_crap": {"crap"}}
)

func step(name string, d api.FormDescriptor) api.StepSpec {
	return api.StepSpec{Name: name, Group: api.Single(d)}
}

func pageOf(name string, subs ...api.StepSpec) api.StepSpec {
	return api.StepSpec{Name: name, Substeps: subs}
}

// harness simulates a client: every call opens a fresh session over the
// same stored state, the way separate requests would.
type harness struct {
	t       *testing.T
	ctx     context.Context
	wizard  api.Wizard
	backend *persistence.MemoryBackend
	key     string
}

func newHarness(t *testing.T, cfg api.Config) *harness {
	t.Helper()
	w, err := New(cfg)
	require.NoError(t, err)
	return &harness{
		t:       t,
		ctx:     context.Background(),
		wizard:  w,
		backend: persistence.NewMemoryBackend(),
		key:     "session",
	}
}

func (h *harness) storage() api.Storage {
	return h.backend.Storage(h.key)
}

func (h *harness) open() api.Session {
	h.t.Helper()
	s, err := h.wizard.Open(h.ctx, h.storage())
	require.NoError(h.t, err)
	return s
}

func (h *harness) submit(step string, data api.Values) *api.Snapshot {
	h.t.Helper()
	snap, err := h.open().Submit(h.ctx, step, data, nil)
	require.NoError(h.t, err)
	return snap
}

func (h *harness) view(step string) *api.Snapshot {
	h.t.Helper()
	snap, err := h.open().View(h.ctx, step)
	require.NoError(h.t, err)
	return snap
}

func complexSpec() api.Spec {
	return api.Spec{
		pageOf("page1",
			step("step1.1", page1),
			step("step1.2", page2),
			step("step1.3", page3),
		),
		pageOf("page2",
			step("step2.1", page1),
			step("step2.2", page2),
		),
	}
}

func complexConditions() api.Conditions {
	return api.Conditions{
		"page2|step2.2": api.If(api.Not(api.FieldEquals("page1|step1.1", "name", "hurray"))),
	}
}

// recordingDone counts done handler calls and keeps the last completion.
type recordingDone struct {
	calls int
	last  *api.Completion
	err   error
}

func (r *recordingDone) handle(_ context.Context, c *api.Completion) (any, error) {
	r.calls++
	r.last = c
	if r.err != nil {
		return nil, r.err
	}
	return "/next-page/", nil
}

func formsWithFile() api.FormDescriptor {
	return forms.New("Upload", forms.FileUpload("cv"))
}

// nopFileStorage accepts uploads without keeping them.
type nopFileStorage struct{}

func (nopFileStorage) Save(_ context.Context, step, field, name string, r io.Reader) (api.File, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return api.File{}, err
	}
	return api.File{Field: field, Name: name, Size: n, Path: step + "/" + name}, nil
}

func (nopFileStorage) Open(context.Context, api.File) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

// failingStorage fails every call with err.
type failingStorage struct{ err error }

func (f failingStorage) CurrentStep(context.Context) (string, error)           { return "", f.err }
func (f failingStorage) SetCurrentStep(context.Context, string) error          { return f.err }
func (f failingStorage) StepData(context.Context, string) (api.Values, error)  { return nil, f.err }
func (f failingStorage) SetStepData(context.Context, string, api.Values) error { return f.err }
func (f failingStorage) StepFiles(context.Context, string) (api.Files, error)  { return nil, f.err }
func (f failingStorage) SetStepFiles(context.Context, string, api.Files) error { return f.err }
func (f failingStorage) ExtraData(context.Context) (map[string]any, error)     { return nil, f.err }
func (f failingStorage) SetExtraData(context.Context, map[string]any) error    { return f.err }
func (f failingStorage) Reset(context.Context) error                           { return f.err }
