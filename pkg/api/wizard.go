package api

import (
	"context"
	"log/slog"
)

// Pseudo-step names reserved by default. They address control operations
// and may not be used as step keys.
const (
	DefaultDoneStep   = "done"
	DefaultDataStep   = "data"
	DefaultGotoStep   = "goto"
	DefaultPrevStep   = "prev"
	DefaultNextStep   = "next"
	DefaultCommitStep = "commit"
)

// StepNames configures the reserved pseudo-step names. Empty fields fall
// back to the defaults.
type StepNames struct {
	Done   string
	Data   string
	Goto   string
	Prev   string
	Next   string
	Commit string
}

// WithDefaults fills empty names.
func (n StepNames) WithDefaults() StepNames {
	if n.Done == "" {
		n.Done = DefaultDoneStep
	}
	if n.Data == "" {
		n.Data = DefaultDataStep
	}
	if n.Goto == "" {
		n.Goto = DefaultGotoStep
	}
	if n.Prev == "" {
		n.Prev = DefaultPrevStep
	}
	if n.Next == "" {
		n.Next = DefaultNextStep
	}
	if n.Commit == "" {
		n.Commit = DefaultCommitStep
	}
	return n
}

// Reserved lists every pseudo-step name.
func (n StepNames) Reserved() []string {
	n = n.WithDefaults()
	return []string{n.Done, n.Data, n.Goto, n.Prev, n.Next, n.Commit}
}

// Config describes a wizard. Exactly one of Steps and StepsFactory must be
// set.
type Config struct {
	Name string

	// Steps is compiled into the catalog when the wizard is built.
	Steps Spec
	// StepsFactory is invoked once, on first use, when the steps are only
	// known at runtime.
	StepsFactory SpecFactory

	Conditions Conditions
	Separator  string
	StepNames  StepNames

	// MergeTagged flattens the cleaned data of tagged steps into one map.
	// Colliding field names resolve to the last tag. By default the data of
	// each tag stays under its own key.
	MergeTagged bool

	Initial     InitialFunc
	Instance    InstanceFunc
	Renderer    Renderer
	Encoder     ValueEncoder
	Done        DoneHandler
	FileStorage FileStorage

	Observer Observer
	Logger   *slog.Logger
}

// Wizard is a compiled wizard definition. It is immutable and safe for
// concurrent use; per-request state lives in Sessions.
type Wizard interface {
	Name() string
	StepNames() StepNames
	// Catalog resolves (once) and returns the step catalog.
	Catalog(ctx context.Context) (*Catalog, error)
	// Open loads the state persisted in s and returns a session over it.
	Open(ctx context.Context, s Storage) (Session, error)
}

// Session is one request's view of a wizard run. It is not safe for
// concurrent use.
type Session interface {
	// View renders step, or the current step when step is "". Unknown or
	// inactive steps move the cursor back to the first step.
	View(ctx context.Context, step string) (*Snapshot, error)
	// Data renders the full state; done reports whether every active step
	// validates.
	Data(ctx context.Context) (*Snapshot, error)
	// Submit validates and stores data for step and advances the cursor.
	Submit(ctx context.Context, step string, data Values, files Files) (*Snapshot, error)
	Goto(ctx context.Context, step string) (*Snapshot, error)
	Prev(ctx context.Context) (*Snapshot, error)
	Next(ctx context.Context) (*Snapshot, error)
	// Commit revalidates every active step, calls the done handler and
	// resets the session.
	Commit(ctx context.Context) (any, error)
	Reset(ctx context.Context) error

	Phase() Phase
	ActiveSteps() []string
	CurrentStep() string
	CleanedDataForStep(step string) map[string]any
	AllCleanedData() map[string]any
	AllCleanedDataByStep() map[string]map[string]any
	ExtraData() map[string]any
	SetExtraData(ctx context.Context, extra map[string]any) error
}
