package persistence

import (
	"context"
	"encoding/gob"
	"errors"
	"testing"

	"github.com/petrijr/journey/pkg/api"
)

type sampleState struct {
	OtherTrn *string
	Choices  []string
}

func init() {
	gob.Register(&sampleState{})
}

const sampleStateType = "github.com/petrijr/journey/internal/persistence.sampleState"

func sampleID(unique string) api.InstanceID {
	return api.InstanceID{
		JourneyName: "merge-person",
		Keys:        []api.KeyValue{{Key: "personId", Value: "p1"}},
		UniqueKey:   unique,
	}
}

func sampleRecord(unique string) *api.StoredInstance {
	return &api.StoredInstance{
		ID:          sampleID(unique),
		JourneyName: "merge-person",
		StateType:   sampleStateType,
		State:       &sampleState{},
		Steps:       api.NewHistory(api.NewStep("/merge/start?personId=p1")),
	}
}

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	got, err := store.GetInstance(ctx, sampleID("tok-1"), sampleStateType)
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if got.JourneyName != "merge-person" {
		t.Fatalf("unexpected journey name %q", got.JourneyName)
	}
	state, ok := got.State.(*sampleState)
	if !ok {
		t.Fatalf("expected *sampleState, got %T", got.State)
	}
	if state.OtherTrn != nil {
		t.Fatalf("expected zero state, got %+v", state)
	}
	if len(got.Steps.Steps) != 1 || got.Steps.Steps[0].Path != "/merge/start" {
		t.Fatalf("unexpected steps: %+v", got.Steps)
	}
}

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.GetInstance(context.Background(), sampleID("missing"), sampleStateType)
	if !errors.Is(err, api.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
}

func TestInMemoryStore_DuplicateCreateRejected(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	err := store.CreateInstance(ctx, sampleRecord("tok-1"))
	if !errors.Is(err, api.ErrInstanceAlreadyExists) {
		t.Fatalf("expected ErrInstanceAlreadyExists, got %v", err)
	}

	// A different unique key is a different instance.
	if err := store.CreateInstance(ctx, sampleRecord("tok-2")); err != nil {
		t.Fatalf("CreateInstance with new key failed: %v", err)
	}
}

func TestInMemoryStore_CreateAfterDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := store.DeleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("DeleteInstance failed: %v", err)
	}

	if _, err := store.GetInstance(ctx, sampleID("tok-1"), sampleStateType); !errors.Is(err, api.ErrInstanceNotFound) {
		t.Fatalf("expected deleted instance to be not found, got %v", err)
	}

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("expected create after delete to succeed, got %v", err)
	}
}

func TestInMemoryStore_UpdateState(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	trn := "1234567"
	steps := api.NewHistory(api.NewStep("/merge/start?personId=p1"))
	steps, _ = steps.Advance("/merge/start", api.NewStep("/merge/enter-trn?personId=p1"))

	err := store.UpdateInstanceState(ctx, sampleID("tok-1"), sampleStateType, &sampleState{OtherTrn: &trn}, steps)
	if err != nil {
		t.Fatalf("UpdateInstanceState failed: %v", err)
	}

	got, err := store.GetInstance(ctx, sampleID("tok-1"), sampleStateType)
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	state := got.State.(*sampleState)
	if state.OtherTrn == nil || *state.OtherTrn != "1234567" {
		t.Fatalf("expected updated state, got %+v", state)
	}
	if len(got.Steps.Steps) != 2 {
		t.Fatalf("expected steps persisted, got %+v", got.Steps)
	}
}

func TestInMemoryStore_UpdateAfterCompleteRejected(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := store.CompleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("CompleteInstance failed: %v", err)
	}

	// Completion is idempotent.
	if err := store.CompleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("second CompleteInstance failed: %v", err)
	}

	err := store.UpdateInstanceState(ctx, sampleID("tok-1"), sampleStateType, &sampleState{}, api.History{})
	if !errors.Is(err, api.ErrInstanceCompleted) {
		t.Fatalf("expected ErrInstanceCompleted, got %v", err)
	}

	// The completed instance stays readable.
	got, err := store.GetInstance(ctx, sampleID("tok-1"), sampleStateType)
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if !got.Completed {
		t.Fatalf("expected Completed flag set")
	}
}

func TestInMemoryStore_StateTypeMismatch(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	_, err := store.GetInstance(ctx, sampleID("tok-1"), "some/other.Type")
	if !errors.Is(err, api.ErrStateTypeMismatch) {
		t.Fatalf("expected ErrStateTypeMismatch, got %v", err)
	}
}

func TestInMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.DeleteInstance(ctx, sampleID("never-created"), sampleStateType); err != nil {
		t.Fatalf("expected delete of unknown id to succeed, got %v", err)
	}

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := store.DeleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("DeleteInstance failed: %v", err)
	}
	if err := store.DeleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("second DeleteInstance failed: %v", err)
	}
}

func TestInMemoryStore_ValueIsolation(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	got, err := store.GetInstance(ctx, sampleID("tok-1"), sampleStateType)
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}

	// Mutating a returned state must not change the store.
	trn := "9999999"
	got.State.(*sampleState).OtherTrn = &trn

	again, err := store.GetInstance(ctx, sampleID("tok-1"), sampleStateType)
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if again.State.(*sampleState).OtherTrn != nil {
		t.Fatalf("expected stored state untouched by caller mutation")
	}
}

func TestInMemoryStore_ListInstances(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := store.CreateInstance(ctx, sampleRecord("tok-2")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	other := sampleRecord("tok-3")
	other.ID.JourneyName = "resolve-task"
	other.JourneyName = "resolve-task"
	if err := store.CreateInstance(ctx, other); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	if err := store.CompleteInstance(ctx, sampleID("tok-2"), sampleStateType); err != nil {
		t.Fatalf("CompleteInstance failed: %v", err)
	}

	all, err := store.ListInstances(ctx, api.ListFilter{})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(all))
	}

	merges, err := store.ListInstances(ctx, api.ListFilter{JourneyName: "merge-person"})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(merges) != 2 {
		t.Fatalf("expected 2 merge-person instances, got %d", len(merges))
	}

	completed := true
	done, err := store.ListInstances(ctx, api.ListFilter{Completed: &completed})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(done) != 1 || done[0].ID.UniqueKey != "tok-2" {
		t.Fatalf("expected only tok-2 completed, got %+v", done)
	}
}
