package api

import (
	"reflect"
)

// StateAccessor is what condition predicates see of the wizard.
type StateAccessor interface {
	// CleanedDataForStep revalidates the stored data of step and returns its
	// cleaned data, or an empty map when the step is unanswered or invalid.
	CleanedDataForStep(step string) map[string]any
	// ExtraData returns the collaborator-owned extra data of the session.
	ExtraData() map[string]any
}

// Predicate decides whether a step is active. Predicates must be pure: they
// run on every active-sequence computation, several times per request.
type Predicate func(s StateAccessor) bool

// Condition is either a static flag or a predicate.
type Condition struct {
	static bool
	pred   Predicate
}

// When returns a static condition.
func When(active bool) Condition {
	return Condition{static: active}
}

// If returns a predicate condition. A nil predicate is always active.
func If(p Predicate) Condition {
	if p == nil {
		return When(true)
	}
	return Condition{pred: p}
}

// IsStatic reports whether the condition does not depend on wizard state.
func (c Condition) IsStatic() bool { return c.pred == nil }

// Evaluate resolves the condition against s.
func (c Condition) Evaluate(s StateAccessor) bool {
	if c.pred == nil {
		return c.static
	}
	return c.pred(s)
}

// Conditions maps step keys to conditions. Steps without an entry are
// always active.
type Conditions map[string]Condition

// FieldEquals returns a predicate that is true when field of step's cleaned
// data equals value. Values are compared with reflect.DeepEqual, so the
// dynamic types must match (integer fields clean to int64).
func FieldEquals(step, field string, value any) Predicate {
	return func(s StateAccessor) bool {
		v, ok := s.CleanedDataForStep(step)[field]
		return ok && reflect.DeepEqual(v, value)
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(s StateAccessor) bool { return !p(s) }
}
