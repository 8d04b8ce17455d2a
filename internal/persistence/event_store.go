package persistence

import (
	"context"
	"sync"

	"github.com/petrijr/journey/pkg/api"
)

// EventStore is an append-only history store for journey lifecycle events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.Event) error
	ListEvents(ctx context.Context, instanceID string) ([]api.Event, error)
}

// NoopEventStore discards all events.
type NoopEventStore struct{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.Event) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.Event, error) {
	return nil, nil
}

// InMemoryEventStore keeps events in a map, in append order per instance.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]api.Event
}

var _ EventStore = (*InMemoryEventStore)(nil)

// NewInMemoryEventStore creates a new InMemoryEventStore.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string][]api.Event)}
}

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.InstanceID] = append(s.events[ev.InstanceID], ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[instanceID]
	out := make([]api.Event, len(evs))
	copy(out, evs)
	return out, nil
}
