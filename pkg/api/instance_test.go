package api

import (
	"context"
	"encoding/gob"
	"errors"
	"testing"
)

type draftState struct {
	Title string
	Tags  []string
}

func init() {
	gob.Register(&draftState{})
}

const draftStateType = "github.com/petrijr/journey/pkg/api.draftState"

// recordingStore is a StateStore stub that captures update writes and can
// be primed to reject them.
type recordingStore struct {
	updateErr error

	updates   int
	lastState any
	lastSteps History
}

var _ StateStore = (*recordingStore)(nil)

func (s *recordingStore) CreateInstance(ctx context.Context, rec *StoredInstance) error { return nil }

func (s *recordingStore) GetInstance(ctx context.Context, id InstanceID, stateType string) (*StoredInstance, error) {
	return nil, ErrInstanceNotFound
}

func (s *recordingStore) UpdateInstanceState(ctx context.Context, id InstanceID, stateType string, state any, steps History) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates++
	s.lastState = state
	s.lastSteps = steps
	return nil
}

func (s *recordingStore) CompleteInstance(ctx context.Context, id InstanceID, stateType string) error {
	return nil
}

func (s *recordingStore) DeleteInstance(ctx context.Context, id InstanceID, stateType string) error {
	return nil
}

func (s *recordingStore) ListInstances(ctx context.Context, filter ListFilter) ([]*StoredInstance, error) {
	return nil, nil
}

func draftInstance(store StateStore) *Instance {
	return NewInstance(store, nil, &StoredInstance{
		ID:          InstanceID{JourneyName: "edit-draft", Keys: []KeyValue{{Key: "draftId", Value: "d1"}}},
		JourneyName: "edit-draft",
		StateType:   draftStateType,
		State:       &draftState{Title: "v1"},
		Steps:       NewHistory(NewStep("/draft/start?draftId=d1")),
	})
}

func TestInstanceUpdateStateRejectedWriteKeepsOldState(t *testing.T) {
	store := &recordingStore{updateErr: ErrInstanceCompleted}
	inst := draftInstance(store)

	err := inst.UpdateState(context.Background(), func(state any) {
		state.(*draftState).Title = "v2"
	})
	if !errors.Is(err, ErrInstanceCompleted) {
		t.Fatalf("expected ErrInstanceCompleted, got %v", err)
	}

	// The in-memory view must still match what the store holds.
	if got := inst.State().(*draftState).Title; got != "v1" {
		t.Fatalf("expected state to stay %q, got %q", "v1", got)
	}
}

func TestInstanceUpdateStatePersistsWhatStateReturns(t *testing.T) {
	store := &recordingStore{}
	inst := draftInstance(store)

	err := inst.UpdateState(context.Background(), func(state any) {
		state.(*draftState).Title = "v2"
	})
	if err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	if store.updates != 1 {
		t.Fatalf("expected one store write, got %d", store.updates)
	}
	if got := store.lastState.(*draftState).Title; got != "v2" {
		t.Fatalf("store saw %q, want %q", got, "v2")
	}
	if got := inst.State().(*draftState).Title; got != "v2" {
		t.Fatalf("State returned %q, want %q", got, "v2")
	}
	if inst.State() != store.lastState {
		t.Fatalf("State must return the persisted payload")
	}
}

func TestTypedAdvanceRejectedWriteKeepsStateAndSteps(t *testing.T) {
	store := &recordingStore{updateErr: ErrInstanceCompleted}
	inst := draftInstance(store)

	typed, err := Typed[draftState](inst)
	if err != nil {
		t.Fatalf("Typed failed: %v", err)
	}

	_, err = typed.Advance(context.Background(), "/draft/start", NewStep("/draft/review?draftId=d1"), func(s *draftState) {
		s.Title = "v2"
		s.Tags = append(s.Tags, "ready")
	})
	if !errors.Is(err, ErrInstanceCompleted) {
		t.Fatalf("expected ErrInstanceCompleted, got %v", err)
	}

	if got := typed.State().Title; got != "v1" {
		t.Fatalf("expected state to stay %q, got %q", "v1", got)
	}
	if len(typed.State().Tags) != 0 {
		t.Fatalf("expected tags to stay empty, got %v", typed.State().Tags)
	}
	if n := len(typed.Steps().Steps); n != 1 {
		t.Fatalf("expected history to stay at 1 step, got %d", n)
	}
}

func TestTypedAdvancePersistsStateAndStepTogether(t *testing.T) {
	store := &recordingStore{}
	inst := draftInstance(store)

	typed, err := Typed[draftState](inst)
	if err != nil {
		t.Fatalf("Typed failed: %v", err)
	}

	_, err = typed.Advance(context.Background(), "/draft/start", NewStep("/draft/review?draftId=d1"), func(s *draftState) {
		s.Title = "v2"
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if store.updates != 1 {
		t.Fatalf("expected a single store write, got %d", store.updates)
	}
	if got := store.lastState.(*draftState).Title; got != "v2" {
		t.Fatalf("store saw %q, want %q", got, "v2")
	}
	if n := len(store.lastSteps.Steps); n != 2 {
		t.Fatalf("expected 2 steps persisted, got %d", n)
	}
	if got := typed.State().Title; got != "v2" {
		t.Fatalf("State returned %q, want %q", got, "v2")
	}
}
