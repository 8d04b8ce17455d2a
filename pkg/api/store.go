package api

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInstanceNotFound is returned by stores when no live instance
	// exists for an id. Soft-deleted instances are reported as not found.
	ErrInstanceNotFound = errors.New("journey: instance not found")

	// ErrInstanceAlreadyExists is returned by CreateInstance when a live
	// (not-yet-deleted) instance with the same id already exists. It
	// usually indicates a double submission in the calling flow.
	ErrInstanceAlreadyExists = errors.New("journey: instance already exists")

	// ErrStateTypeMismatch is returned when a stored instance's state type
	// does not match the type the caller declared. This guards against a
	// stale URL pointing at a differently-typed journey after a deployment
	// change.
	ErrStateTypeMismatch = errors.New("journey: state type mismatch")
)

// StoredInstance is the persistence-level record for one journey instance.
type StoredInstance struct {
	ID          InstanceID
	JourneyName string
	StateType   string
	State       any
	Steps       History
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter selects instances from a store. Zero values mean "no filter"
// for that field.
type ListFilter struct {
	// JourneyName, if non-empty, limits results to instances of the given
	// journey.
	JourneyName string

	// Completed, if non-nil, limits results to completed (true) or
	// in-flight (false) instances. Deleted instances are never listed.
	Completed *bool
}

// StateStore is the persistence contract for journey instances. It is the
// only thing a durable backend must satisfy; the engine ships in-memory,
// SQLite, Postgres and Redis implementations.
//
// All semantics are full-replace: UpdateInstanceState overwrites the whole
// state payload, so a single update is atomic and no partial state can be
// observed.
type StateStore interface {
	// CreateInstance persists a new instance. It returns
	// ErrInstanceAlreadyExists if a live instance with the same id exists.
	// A previously deleted instance with the same id is replaced.
	CreateInstance(ctx context.Context, rec *StoredInstance) error

	// GetInstance returns the live instance with the given id, or
	// ErrInstanceNotFound for unknown and soft-deleted ids. A live
	// instance whose stored state type differs from stateType yields
	// ErrStateTypeMismatch.
	GetInstance(ctx context.Context, id InstanceID, stateType string) (*StoredInstance, error)

	// UpdateInstanceState replaces the instance's state and step history.
	// Completed instances reject updates with ErrInstanceCompleted.
	UpdateInstanceState(ctx context.Context, id InstanceID, stateType string, state any, steps History) error

	// CompleteInstance marks the instance completed. It is idempotent.
	CompleteInstance(ctx context.Context, id InstanceID, stateType string) error

	// DeleteInstance soft-deletes the instance. It is idempotent; deleting
	// an unknown id is not an error.
	DeleteInstance(ctx context.Context, id InstanceID, stateType string) error

	// ListInstances returns live instances matching the filter.
	ListInstances(ctx context.Context, filter ListFilter) ([]*StoredInstance, error)
}
