package formflow

import (
	"fmt"
	"log/slog"
)

// WizardBuilder provides a fluent API for defining wizards:
//
//	w := formflow.New("signup").
//	    Step("account", accountForm).
//	    Page("profile",
//	        formflow.Substep("about", aboutForm),
//	        formflow.Substep("kids", kidsForm),
//	    ).
//	    Condition("profile|kids", formflow.If(hasKids)).
//	    OnDone(save).
//	    MustBuild()
type WizardBuilder struct {
	cfg Config
}

// New creates a new wizard builder with the given name.
func New(name string) *WizardBuilder {
	if name == "" {
		panic("formflow: wizard name must not be empty")
	}
	return &WizardBuilder{
		cfg: Config{
			Name:       name,
			Conditions: make(Conditions),
		},
	}
}

// Name returns the wizard name.
func (b *WizardBuilder) Name() string {
	return b.cfg.Name
}

// Step appends a single-form step. An empty name means the step is named
// by its index.
func (b *WizardBuilder) Step(name string, d FormDescriptor) *WizardBuilder {
	if d == nil {
		panic(fmt.Sprintf("formflow: step %q has nil form descriptor", name))
	}
	b.cfg.Steps = append(b.cfg.Steps, StepSpec{Name: name, Group: Single(d)})
	return b
}

// TaggedStep appends a step showing several forms at once.
func (b *WizardBuilder) TaggedStep(name string, forms ...TaggedForm) *WizardBuilder {
	b.cfg.Steps = append(b.cfg.Steps, TaggedSubstep(name, forms...))
	return b
}

// Page appends a page of substeps. Substep keys become "page|substep".
func (b *WizardBuilder) Page(name string, substeps ...StepSpec) *WizardBuilder {
	if len(substeps) == 0 {
		panic(fmt.Sprintf("formflow: page %q has no substeps", name))
	}
	b.cfg.Steps = append(b.cfg.Steps, StepSpec{Name: name, Substeps: substeps})
	return b
}

// Substep returns a single-form substep for Page.
func Substep(name string, d FormDescriptor) StepSpec {
	if d == nil {
		panic(fmt.Sprintf("formflow: substep %q has nil form descriptor", name))
	}
	return StepSpec{Name: name, Group: Single(d)}
}

// TaggedSubstep returns a multi-form substep for Page.
func TaggedSubstep(name string, forms ...TaggedForm) StepSpec {
	if len(forms) == 0 {
		panic(fmt.Sprintf("formflow: step %q has no forms", name))
	}
	for _, f := range forms {
		if f.Tag == "" || f.Form == nil {
			panic(fmt.Sprintf("formflow: step %q has an empty tag or nil form", name))
		}
	}
	return StepSpec{Name: name, Group: Tagged(forms...)}
}

// Condition makes step conditional. step is the full key, e.g. "page|sub".
func (b *WizardBuilder) Condition(step string, c Condition) *WizardBuilder {
	b.cfg.Conditions[step] = c
	return b
}

// Separator changes the page/substep separator (default "|").
func (b *WizardBuilder) Separator(sep string) *WizardBuilder {
	b.cfg.Separator = sep
	return b
}

// StepNames overrides the reserved pseudo-step names.
func (b *WizardBuilder) StepNames(n StepNames) *WizardBuilder {
	b.cfg.StepNames = n
	return b
}

// MergeTagged flattens the cleaned data of tagged steps.
func (b *WizardBuilder) MergeTagged() *WizardBuilder {
	b.cfg.MergeTagged = true
	return b
}

// Initial sets the initial-values hook.
func (b *WizardBuilder) Initial(fn InitialFunc) *WizardBuilder {
	b.cfg.Initial = fn
	return b
}

// Instance sets the form instance hook.
func (b *WizardBuilder) Instance(fn InstanceFunc) *WizardBuilder {
	b.cfg.Instance = fn
	return b
}

// Renderer sets the form and preview renderer.
func (b *WizardBuilder) Renderer(r Renderer) *WizardBuilder {
	b.cfg.Renderer = r
	return b
}

// OnDone sets the handler run after a successful commit.
func (b *WizardBuilder) OnDone(fn DoneHandler) *WizardBuilder {
	b.cfg.Done = fn
	return b
}

// FileStorage sets where uploads are saved.
func (b *WizardBuilder) FileStorage(fs FileStorage) *WizardBuilder {
	b.cfg.FileStorage = fs
	return b
}

// Observer sets the wizard observer.
func (b *WizardBuilder) Observer(o Observer) *WizardBuilder {
	b.cfg.Observer = o
	return b
}

// Logger sets the wizard logger.
func (b *WizardBuilder) Logger(l *slog.Logger) *WizardBuilder {
	b.cfg.Logger = l
	return b
}

// Config returns a copy of the accumulated configuration.
func (b *WizardBuilder) Config() Config {
	cfg := b.cfg
	cfg.Steps = append(Spec(nil), b.cfg.Steps...)
	cfg.Conditions = make(Conditions, len(b.cfg.Conditions))
	for k, v := range b.cfg.Conditions {
		cfg.Conditions[k] = v
	}
	return cfg
}

// Build compiles the wizard.
func (b *WizardBuilder) Build() (Wizard, error) {
	return NewWizard(b.Config())
}

// MustBuild is like Build but panics on error.
// Useful for initialization in main().
func (b *WizardBuilder) MustBuild() Wizard {
	w, err := b.Build()
	if err != nil {
		panic(err)
	}
	return w
}
