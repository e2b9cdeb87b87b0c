package api

import (
	"github.com/google/uuid"
)

// Snapshot is the JSON-able wizard state consumed by client front ends.
type Snapshot struct {
	// CurrentStep is nil once the wizard reached the terminal done step.
	CurrentStep *string                   `json:"current_step"`
	Done        bool                      `json:"done"`
	Valid       bool                      `json:"valid"`
	Structure   []string                  `json:"structure"`
	Steps       map[string]StepProjection `json:"steps"`
}

// Current returns the current step, or "" when done.
func (s *Snapshot) Current() string {
	if s == nil || s.CurrentStep == nil {
		return ""
	}
	return *s.CurrentStep
}

// StepProjection is the per-step part of a Snapshot.
type StepProjection struct {
	FormID  uuid.UUID      `json:"form_id"`
	Form    any            `json:"form"`
	Preview any            `json:"preview"`
	Valid   bool           `json:"valid"`
	Data    map[string]any `json:"data"`
}

// Phase is the lifecycle position of a wizard session.
type Phase string

const (
	PhasePristine   Phase = "pristine"
	PhaseInProgress Phase = "in_progress"
	PhaseCommitting Phase = "committing"
	PhaseDone       Phase = "done"
)

// Completion is what a DoneHandler receives after every active step
// revalidated.
type Completion struct {
	// Steps is the active sequence, in order.
	Steps []string
	// Forms holds the revalidated groups in step order.
	Forms []BoundGroup
	// FormDict maps step -> tag -> form for tagged steps.
	FormDict map[string]map[string]Form
	// CleanedData maps step -> cleaned data, shaped like CleanedDataForStep.
	CleanedData map[string]map[string]any
	// All is every step's cleaned data merged into one map; later steps win.
	All map[string]any
}
