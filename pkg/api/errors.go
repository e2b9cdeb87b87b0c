package api

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("wizard configuration error")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("step data is invalid")
	// ErrNavigation matches every *NavigationError.
	ErrNavigation = errors.New("invalid navigation")
	// ErrStaleState matches every *StaleStateError.
	ErrStaleState = errors.New("stale wizard state")
)

// ConfigurationError is raised while a wizard is being built, for example
// for an empty Spec or colliding step names. It is never returned from
// request handling of a correctly built wizard.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "formflow: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configurationf builds a ConfigurationError from a format string.
func Configurationf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a submission that did not validate. Snapshot is the
// wizard state rendered with the rejected submission, so clients can show
// the field errors.
type ValidationError struct {
	Step     string
	Errors   map[string][]string
	Snapshot *Snapshot
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("formflow: step %q is invalid (%d field errors)", e.Step, len(e.Errors))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NavigationError reports a goto, next, prev or submit that targets a step
// outside the active sequence.
type NavigationError struct {
	Op     string
	Step   string
	Reason string
}

func (e *NavigationError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("formflow: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("formflow: %s %q: %s", e.Op, e.Step, e.Reason)
}

func (e *NavigationError) Is(target error) bool { return target == ErrNavigation }

// StaleStateError reports that revalidation at commit time failed. Step is
// the first failing step; the wizard state was not cleared.
type StaleStateError struct {
	Step     string
	Snapshot *Snapshot
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("formflow: commit rejected, step %q no longer validates", e.Step)
}

func (e *StaleStateError) Is(target error) bool { return target == ErrStaleState }
