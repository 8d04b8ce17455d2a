package api

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
)

var (
	// ErrInstanceCompleted is returned when state mutation is attempted on
	// a completed instance. Completed instances remain readable.
	ErrInstanceCompleted = errors.New("journey: instance is completed")

	// ErrInstanceDeleted is returned when any operation is attempted on a
	// deleted instance.
	ErrInstanceDeleted = errors.New("journey: instance is deleted")
)

// Instance is the runtime view of one stored journey occurrence.
//
// State is opaque at this level; use Typed for a typed view. All mutation
// methods persist through the state store before returning, so the store is
// never behind the in-memory view.
//
// An Instance is request-scoped and not safe for concurrent use. The
// Provider guarantees a single Instance per (request, journey), so handlers
// reading it several times within one request observe one snapshot.
type Instance struct {
	id          InstanceID
	journeyName string
	stateType   string
	state       any
	steps       History
	completed   bool
	deleted     bool

	// properties is an in-memory-only bag for request-scoped collaborators.
	// It is never persisted.
	properties map[string]any

	store    StateStore
	observer Observer
}

// NewInstance wraps a stored record in a live Instance bound to the given
// store. It is used by Provider implementations; application code obtains
// instances from a Provider.
func NewInstance(store StateStore, observer Observer, rec *StoredInstance) *Instance {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Instance{
		id:          rec.ID,
		journeyName: rec.JourneyName,
		stateType:   rec.StateType,
		state:       rec.State,
		steps:       rec.Steps,
		completed:   rec.Completed,
		properties:  make(map[string]any),
		store:       store,
		observer:    observer,
	}
}

// ID returns the instance's identity.
func (i *Instance) ID() InstanceID { return i.id }

// JourneyName returns the name of the journey this instance belongs to.
func (i *Instance) JourneyName() string { return i.journeyName }

// StateTypeName returns the stored state type tag.
func (i *Instance) StateTypeName() string { return i.stateType }

// State returns the opaque state payload (a pointer to the journey's state
// struct). Reading a deleted instance's state is a programming error and
// returns nil.
func (i *Instance) State() any {
	if i.deleted {
		return nil
	}
	return i.state
}

// Steps returns the instance's step history.
func (i *Instance) Steps() History { return i.steps }

// Completed reports whether the instance has been completed.
func (i *Instance) Completed() bool { return i.completed }

// Deleted reports whether the instance has been deleted.
func (i *Instance) Deleted() bool { return i.deleted }

// Properties is an in-memory, request-scoped key/value bag for attaching
// collaborators to the instance. It is never persisted and never shared
// across requests.
func (i *Instance) Properties() map[string]any { return i.properties }

// UpdateState applies update to a copy of the state payload and persists
// the copy before returning. The copy becomes the instance's state only
// once the store write succeeds, so a rejected write (for example a
// completion raced in through another request) leaves the in-memory view
// identical to the stored one. State called after a successful update
// returns the new payload.
//
// Updating a completed instance returns ErrInstanceCompleted; updating a
// deleted one returns ErrInstanceDeleted.
func (i *Instance) UpdateState(ctx context.Context, update func(state any)) error {
	if err := i.mutable(); err != nil {
		return err
	}

	next, err := cloneState(i.state)
	if err != nil {
		return err
	}
	update(next)

	if err := i.store.UpdateInstanceState(ctx, i.id, i.stateType, next, i.steps); err != nil {
		return err
	}
	i.state = next
	i.observer.OnStateUpdated(ctx, i)
	return nil
}

// RecordStep records that the user moved from the step at currentPath to
// next, persisting the extended history alongside the current state. It
// has Advance semantics: re-visiting a recorded step leaves the history
// unchanged, moving forward discards any abandoned future steps.
func (i *Instance) RecordStep(ctx context.Context, currentPath string, next Step) error {
	return i.advance(ctx, currentPath, next, nil)
}

// advance persists a state replacement (when update is non-nil) and the
// extended history in a single store write. Neither the state nor the
// steps of the in-memory instance change unless that write succeeds.
func (i *Instance) advance(ctx context.Context, currentPath string, next Step, update func(state any)) error {
	if err := i.mutable(); err != nil {
		return err
	}

	steps, err := i.steps.Advance(currentPath, next)
	if err != nil {
		return err
	}

	state := i.state
	if update != nil {
		if state, err = cloneState(i.state); err != nil {
			return err
		}
		update(state)
	}

	if err := i.store.UpdateInstanceState(ctx, i.id, i.stateType, state, steps); err != nil {
		return err
	}
	i.state = state
	i.steps = steps
	i.observer.OnStepRecorded(ctx, i, next)
	return nil
}

// PreviousStep returns the step recorded immediately before currentPath,
// or nil if currentPath is the journey's first step.
func (i *Instance) PreviousStep(currentPath string) (*Step, error) {
	if i.deleted {
		return nil, ErrInstanceDeleted
	}
	return i.steps.Previous(currentPath)
}

// Complete marks the instance completed. Completion is monotonic and
// idempotent: a completed instance stays readable but rejects further state
// mutation. Completing a deleted instance returns ErrInstanceDeleted.
func (i *Instance) Complete(ctx context.Context) error {
	if i.deleted {
		return ErrInstanceDeleted
	}
	if i.completed {
		return nil
	}

	if err := i.store.CompleteInstance(ctx, i.id, i.stateType); err != nil {
		return err
	}
	i.completed = true
	i.observer.OnInstanceCompleted(ctx, i)
	return nil
}

// Delete soft-deletes the instance. Deletion is monotonic and idempotent;
// after it, every read or mutation on this Instance fails and the store no
// longer returns the instance. A fresh instance with the same id may be
// created afterwards.
func (i *Instance) Delete(ctx context.Context) error {
	if i.deleted {
		return nil
	}

	if err := i.store.DeleteInstance(ctx, i.id, i.stateType); err != nil {
		return err
	}
	i.deleted = true
	i.observer.OnInstanceDeleted(ctx, i)
	return nil
}

func (i *Instance) mutable() error {
	if i.deleted {
		return ErrInstanceDeleted
	}
	if i.completed {
		return ErrInstanceCompleted
	}
	return nil
}

// cloneState deep-copies a state payload through gob. State types are
// gob-registered at journey registration, so encoding as an interface
// value round-trips the concrete pointer type.
func cloneState(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, err
	}
	var out any
	if err := gob.NewDecoder(&buf).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
