package wizard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/formflow/internal/persistence"
	"github.com/petrijr/formflow/pkg/api"
)

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  api.Config
	}{
		{
			name: "no steps",
			cfg:  api.Config{},
		},
		{
			name: "steps and factory",
			cfg: api.Config{
				Steps:        api.Spec{step("a", page1)},
				StepsFactory: func(context.Context) (api.Spec, error) { return nil, nil },
			},
		},
		{
			name: "condition for unknown step",
			cfg: api.Config{
				Steps:      api.Spec{step("a", page1), step("b", page2)},
				Conditions: api.Conditions{"c": api.When(false)},
			},
		},
		{
			name: "condition on first step",
			cfg: api.Config{
				Steps:      api.Spec{step("a", page1), step("b", page2)},
				Conditions: api.Conditions{"a": api.When(false)},
			},
		},
		{
			name: "reserved step name",
			cfg:  api.Config{Steps: api.Spec{step("data", page1)}},
		},
		{
			name: "custom reserved step name",
			cfg: api.Config{
				Steps:     api.Spec{step("finish", page1)},
				StepNames: api.StepNames{Commit: "finish"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrConfiguration)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	w, err := New(api.Config{Steps: api.Spec{step("", page1)}})
	require.NoError(t, err)

	assert.Equal(t, "wizard", w.Name())
	assert.Equal(t, api.StepNames{}.WithDefaults(), w.StepNames())

	cat, err := w.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, cat.Keys())
}

func TestWizard_DeferredCatalogIsBuiltOnce(t *testing.T) {
	var calls atomic.Int32
	w, err := New(api.Config{
		StepsFactory: func(context.Context) (api.Spec, error) {
			calls.Add(1)
			return api.Spec{step("a", page1), step("b", page2)}, nil
		},
		Conditions: api.Conditions{"b": api.When(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load(), "factory must not run before first use")

	backend := persistence.NewMemoryBackend()
	for i := 0; i < 3; i++ {
		s, err := w.Open(context.Background(), backend.Storage("k"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, s.ActiveSteps())
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestWizard_DeferredCatalogErrorsSurfaceOnOpen(t *testing.T) {
	w, err := New(api.Config{
		StepsFactory: func(context.Context) (api.Spec, error) {
			return api.Spec{step("a", page1)}, nil
		},
		Conditions: api.Conditions{"missing": api.When(true)},
	})
	require.NoError(t, err)

	_, err = w.Open(context.Background(), persistence.NewMemoryBackend().Storage("k"))
	require.ErrorIs(t, err, api.ErrConfiguration)
}

func TestWizard_DeferredFactoryFailure(t *testing.T) {
	boom := errors.New("settings not loaded")
	w, err := New(api.Config{
		StepsFactory: func(context.Context) (api.Spec, error) { return nil, boom },
	})
	require.NoError(t, err)

	_, err = w.Catalog(context.Background())
	require.ErrorIs(t, err, api.ErrConfiguration)
	assert.Contains(t, err.Error(), "settings not loaded")
}

func TestWizard_PanickingFactoryFailsEveryOpen(t *testing.T) {
	w, err := New(api.Config{
		StepsFactory: func(context.Context) (api.Spec, error) { panic("no settings") },
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = w.Open(context.Background(), persistence.NewMemoryBackend().Storage("k"))
		require.ErrorIs(t, err, api.ErrConfiguration)
		assert.Contains(t, err.Error(), "no settings")
	}
}

func TestWizard_FileFieldsNeedFileStorage(t *testing.T) {
	upload := formsWithFile()
	_, err := New(api.Config{Steps: api.Spec{step("cv", upload)}})
	require.ErrorIs(t, err, api.ErrConfiguration)

	_, err = New(api.Config{Steps: api.Spec{step("cv", upload)}, FileStorage: nopFileStorage{}})
	require.NoError(t, err)
}

func TestWizard_OpenPropagatesStorageErrors(t *testing.T) {
	w, err := New(api.Config{Steps: api.Spec{step("a", page1)}})
	require.NoError(t, err)

	boom := errors.New("storage down")
	_, err = w.Open(context.Background(), failingStorage{err: boom})
	require.ErrorIs(t, err, boom)
}

func TestFormID_IsDeterministicPerStep(t *testing.T) {
	assert.Equal(t, FormID("page1|step1.1"), FormID("page1|step1.1"))
	assert.NotEqual(t, FormID("0"), FormID("1"))
	// md5("0") = cfcd208495d565ef66e7dff9f98764da
	assert.Equal(t, "cfcd2084-95d5-65ef-66e7-dff9f98764da", FormID("0").String())
}
