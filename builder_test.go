package formflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactForm() *FormSchema {
	return NewForm("Contact", TextField("name", 50), IntField("age").Optional())
}

func TestWizardBuilder_BuildAndRun(t *testing.T) {
	ctx := context.Background()

	var got *Completion
	w := New("builder-sample").
		Step("", contactForm()).
		Page("page",
			Substep("a", NewForm("A", TextField("street", 0))),
			TaggedSubstep("b",
				Tag("home", NewForm("Home", EmailField("email"))),
				Tag("work", NewForm("Work", EmailField("email").Optional())),
			),
		).
		Condition("page|a", If(Not(FieldEquals("0", "age", int64(3))))).
		OnDone(func(ctx context.Context, c *Completion) (any, error) {
			got = c
			return "ok", nil
		}).
		MustBuild()

	assert.Equal(t, "builder-sample", w.Name())

	cat, err := w.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "page|a", "page|b"}, cat.Keys())

	s, err := w.Open(ctx, NewMemoryBackend().Storage("k"))
	require.NoError(t, err)

	_, err = s.Submit(ctx, "0", Values{"name": {"Ada"}, "age": {"3"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "page|b"}, s.ActiveSteps())

	_, err = s.Submit(ctx, "page|b", Values{"home-email": {"ada@example.com"}, "email": {"ada@example.com"}}, nil)
	require.NoError(t, err)

	res, err := s.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	require.NotNil(t, got)
	assert.Equal(t, []string{"0", "page|b"}, got.Steps)
}

func TestWizardBuilder_ConfigIsACopy(t *testing.T) {
	b := New("copy").Step("one", contactForm())
	cfg := b.Config()
	b.Step("two", contactForm()).Condition("two", When(false))

	assert.Len(t, cfg.Steps, 1)
	assert.Empty(t, cfg.Conditions)
	assert.Len(t, b.Config().Steps, 2)
}

func TestWizardBuilder_Options(t *testing.T) {
	metrics := &BasicMetrics{}
	cfg := New("opts").
		Step("one", contactForm()).
		Separator("/").
		MergeTagged().
		StepNames(StepNames{Done: "finish"}).
		Observer(metrics).
		FileStorage(NewMemoryFileStorage()).
		Config()

	assert.Equal(t, "/", cfg.Separator)
	assert.True(t, cfg.MergeTagged)
	assert.Equal(t, "finish", cfg.StepNames.Done)
	assert.Same(t, metrics, cfg.Observer)
	assert.NotNil(t, cfg.FileStorage)
}

func TestWizardBuilder_BuildReportsConfigurationErrors(t *testing.T) {
	_, err := New("bad").Step("done", contactForm()).Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	assert.Panics(t, func() { New("bad").Step("x", contactForm()).Step("x", contactForm()).MustBuild() })
}

func TestWizardBuilder_PanicsOnProgrammerErrors(t *testing.T) {
	assert.Panics(t, func() { New("") })
	assert.Panics(t, func() { New("w").Step("s", nil) })
	assert.Panics(t, func() { New("w").Page("p") })
	assert.Panics(t, func() { Substep("s", nil) })
	assert.Panics(t, func() { TaggedSubstep("s") })
	assert.Panics(t, func() { TaggedSubstep("s", Tag("", contactForm())) })
}
