package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/petrijr/journey/pkg/api"
)

// InMemoryStore is a goroutine-safe implementation of api.StateStore backed
// by a map. It is intended for tests and single-process use.
//
// State payloads are gob-round-tripped on every write and read, so callers
// get the same value-isolation semantics as the durable stores: mutating a
// returned state does not change the store until the next update.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*memoryRow
}

type memoryRow struct {
	id          api.InstanceID
	journeyName string
	stateType   string
	state       []byte
	steps       api.History
	completed   bool
	deleted     bool
	createdAt   time.Time
	updatedAt   time.Time
}

// Ensure InMemoryStore implements the interface.
var _ api.StateStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rows: make(map[string]*memoryRow),
	}
}

func (s *InMemoryStore) CreateInstance(ctx context.Context, rec *api.StoredInstance) error {
	state, err := EncodeState(rec.State)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.ID.String()
	if row, ok := s.rows[key]; ok && !row.deleted {
		return api.ErrInstanceAlreadyExists
	}

	now := time.Now()
	s.rows[key] = &memoryRow{
		id:          rec.ID,
		journeyName: rec.JourneyName,
		stateType:   rec.StateType,
		state:       state,
		steps:       rec.Steps,
		completed:   rec.Completed,
		createdAt:   now,
		updatedAt:   now,
	}
	return nil
}

func (s *InMemoryStore) GetInstance(ctx context.Context, id api.InstanceID, stateType string) (*api.StoredInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id.String()]
	if !ok || row.deleted {
		return nil, api.ErrInstanceNotFound
	}
	if row.stateType != stateType {
		return nil, api.ErrStateTypeMismatch
	}

	return row.toRecord()
}

func (s *InMemoryStore) UpdateInstanceState(ctx context.Context, id api.InstanceID, stateType string, state any, steps api.History) error {
	encoded, err := EncodeState(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id.String()]
	if !ok || row.deleted {
		return api.ErrInstanceNotFound
	}
	if row.stateType != stateType {
		return api.ErrStateTypeMismatch
	}
	if row.completed {
		return api.ErrInstanceCompleted
	}

	row.state = encoded
	row.steps = steps
	row.updatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) CompleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id.String()]
	if !ok || row.deleted {
		return api.ErrInstanceNotFound
	}
	if row.stateType != stateType {
		return api.ErrStateTypeMismatch
	}
	if row.completed {
		return nil
	}

	row.completed = true
	row.updatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) DeleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id.String()]
	if !ok || row.deleted {
		return nil
	}

	row.deleted = true
	row.updatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ListInstances(ctx context.Context, filter api.ListFilter) ([]*api.StoredInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.StoredInstance
	for _, row := range s.rows {
		if row.deleted {
			continue
		}
		if filter.JourneyName != "" && row.journeyName != filter.JourneyName {
			continue
		}
		if filter.Completed != nil && row.completed != *filter.Completed {
			continue
		}

		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (r *memoryRow) toRecord() (*api.StoredInstance, error) {
	state, err := DecodeState(r.state)
	if err != nil {
		return nil, err
	}
	return &api.StoredInstance{
		ID:          r.id,
		JourneyName: r.journeyName,
		StateType:   r.stateType,
		State:       state,
		Steps:       r.steps,
		Completed:   r.completed,
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}, nil
}
