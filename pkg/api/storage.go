package api

import (
	"context"
	"io"
)

// Storage is the per-session store of wizard state. The wizard never keeps
// state of its own; everything it remembers between requests goes through
// this interface. Writes for one step key must be atomic.
type Storage interface {
	// CurrentStep returns the stored cursor, or "" when none is set.
	CurrentStep(ctx context.Context) (string, error)
	SetCurrentStep(ctx context.Context, step string) error

	// StepData returns the raw values stored for step, or nil.
	StepData(ctx context.Context, step string) (Values, error)
	SetStepData(ctx context.Context, step string, data Values) error

	// StepFiles returns the file references stored for step, or nil.
	StepFiles(ctx context.Context, step string) (Files, error)
	SetStepFiles(ctx context.Context, step string, files Files) error

	ExtraData(ctx context.Context) (map[string]any, error)
	SetExtraData(ctx context.Context, extra map[string]any) error

	// Reset clears the cursor, all step data and extra data.
	Reset(ctx context.Context) error
}

// StorageBackend hands out Storage scoped to one session key.
type StorageBackend interface {
	Storage(key string) Storage
}

// FileStorage persists uploaded files for steps that accept them.
type FileStorage interface {
	Save(ctx context.Context, step, field, name string, r io.Reader) (File, error)
	Open(ctx context.Context, f File) (io.ReadCloser, error)
}
