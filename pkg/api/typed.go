package api

import (
	"context"
	"fmt"
	"reflect"
)

// TypedInstance is a typed view over an Instance whose state payload is *T.
// Obtain one with Typed; the downcast is checked once, after which State
// and UpdateState are type-safe.
type TypedInstance[T any] struct {
	inst *Instance
}

// Typed returns a typed view of inst for state type T. It returns
// ErrStateTypeMismatch if the instance carries a different state type;
// that is a programming error (handler bound to the wrong journey), not a
// recoverable condition.
func Typed[T any](inst *Instance) (*TypedInstance[T], error) {
	want := typeName(reflect.TypeOf((*T)(nil)).Elem())
	if inst.StateTypeName() != want {
		return nil, fmt.Errorf("%w: instance %q carries %q, handler expects %q",
			ErrStateTypeMismatch, inst.ID(), inst.StateTypeName(), want)
	}
	if _, ok := inst.State().(*T); !ok && !inst.Deleted() {
		return nil, fmt.Errorf("%w: instance %q state is %T, handler expects *%s",
			ErrStateTypeMismatch, inst.ID(), inst.State(), want)
	}
	return &TypedInstance[T]{inst: inst}, nil
}

// Unwrap returns the underlying type-erased Instance.
func (t *TypedInstance[T]) Unwrap() *Instance { return t.inst }

// ID returns the instance's identity.
func (t *TypedInstance[T]) ID() InstanceID { return t.inst.ID() }

// State returns the typed state payload. Mutations through the returned
// pointer are not persisted until UpdateState is called.
func (t *TypedInstance[T]) State() *T {
	s, _ := t.inst.State().(*T)
	return s
}

// Steps returns the instance's step history.
func (t *TypedInstance[T]) Steps() History { return t.inst.Steps() }

// Completed reports whether the instance has been completed.
func (t *TypedInstance[T]) Completed() bool { return t.inst.Completed() }

// Deleted reports whether the instance has been deleted.
func (t *TypedInstance[T]) Deleted() bool { return t.inst.Deleted() }

// Properties exposes the underlying instance's request-scoped bag.
func (t *TypedInstance[T]) Properties() map[string]any { return t.inst.Properties() }

// UpdateState applies update to the typed state and persists the
// replacement before returning.
func (t *TypedInstance[T]) UpdateState(ctx context.Context, update func(*T)) error {
	return t.inst.UpdateState(ctx, func(state any) {
		update(state.(*T))
	})
}

// Advance applies update (which may be nil) to a copy of the state,
// records the transition from currentPath to next, and returns next's URL
// augmented with the instance's unique key, ready to redirect to. State
// mutation and step recording persist as one store write; if that write
// fails, the in-memory instance keeps its previous state and steps.
func (t *TypedInstance[T]) Advance(ctx context.Context, currentPath string, next Step, update func(*T)) (string, error) {
	var apply func(any)
	if update != nil {
		apply = func(state any) { update(state.(*T)) }
	}
	if err := t.inst.advance(ctx, currentPath, next, apply); err != nil {
		return "", err
	}
	return t.ID().AppendToURL(next.URL), nil
}

// PreviousStep returns the step recorded immediately before currentPath,
// or nil when currentPath is the first step.
func (t *TypedInstance[T]) PreviousStep(currentPath string) (*Step, error) {
	return t.inst.PreviousStep(currentPath)
}

// BackLink returns the URL to link "back" to from the step at currentPath:
// the previous step's URL, or fallback when currentPath is the journey's
// first step. A currentPath that was never recorded is an error.
func (t *TypedInstance[T]) BackLink(currentPath, fallback string) (string, error) {
	prev, err := t.inst.PreviousStep(currentPath)
	if err != nil {
		return "", err
	}
	if prev == nil {
		return fallback, nil
	}
	return t.ID().AppendToURL(prev.URL), nil
}

// Complete marks the instance completed.
func (t *TypedInstance[T]) Complete(ctx context.Context) error {
	return t.inst.Complete(ctx)
}

// Delete soft-deletes the instance.
func (t *TypedInstance[T]) Delete(ctx context.Context) error {
	return t.inst.Delete(ctx)
}
