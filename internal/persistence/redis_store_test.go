package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/journey/pkg/api"
)

// Redis tests run against a real server. Set JOURNEY_REDIS_ADDR (e.g.
// "localhost:6379") to enable them; otherwise they are skipped.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("JOURNEY_REDIS_ADDR")
	if addr == "" {
		t.Skip("JOURNEY_REDIS_ADDR not set; skipping Redis store tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	prefix := fmt.Sprintf("journeytest:%s:%d:", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			_ = client.Del(ctx, iter.Val()).Err()
		}
		_ = client.Close()
	})

	return NewRedisStore(client, prefix)
}

func TestRedisStore_CreateGetUpdate(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); !errors.Is(err, api.ErrInstanceAlreadyExists) {
		t.Fatalf("expected ErrInstanceAlreadyExists, got %v", err)
	}

	trn := "1234567"
	if err := store.UpdateInstanceState(ctx, sampleID("tok-1"), sampleStateType, &sampleState{OtherTrn: &trn}, api.History{}); err != nil {
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
}

func TestRedisStore_CompleteAndDelete(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := store.CompleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("CompleteInstance failed: %v", err)
	}
	err := store.UpdateInstanceState(ctx, sampleID("tok-1"), sampleStateType, &sampleState{}, api.History{})
	if !errors.Is(err, api.ErrInstanceCompleted) {
		t.Fatalf("expected ErrInstanceCompleted, got %v", err)
	}

	if err := store.DeleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("DeleteInstance failed: %v", err)
	}
	if err := store.DeleteInstance(ctx, sampleID("tok-1"), sampleStateType); err != nil {
		t.Fatalf("second DeleteInstance failed: %v", err)
	}
	if _, err := store.GetInstance(ctx, sampleID("tok-1"), sampleStateType); !errors.Is(err, api.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound after delete, got %v", err)
	}

	// The id is free again after deletion.
	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("expected create after delete to succeed, got %v", err)
	}
}

func TestRedisStore_ListInstances(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.CreateInstance(ctx, sampleRecord("tok-1")); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	other := sampleRecord("tok-2")
	other.ID.JourneyName = "resolve-task"
	other.JourneyName = "resolve-task"
	if err := store.CreateInstance(ctx, other); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if err := store.CompleteInstance(ctx, other.ID, sampleStateType); err != nil {
		t.Fatalf("CompleteInstance failed: %v", err)
	}

	merges, err := store.ListInstances(ctx, api.ListFilter{JourneyName: "merge-person"})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(merges) != 1 || merges[0].ID.UniqueKey != "tok-1" {
		t.Fatalf("expected only tok-1, got %+v", merges)
	}

	inFlight := false
	live, err := store.ListInstances(ctx, api.ListFilter{Completed: &inFlight})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(live) != 1 || live[0].ID.UniqueKey != "tok-1" {
		t.Fatalf("expected only the in-flight instance, got %+v", live)
	}
}
