package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/journey/pkg/api"
)

// RedisStore is an api.StateStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>inst:<id>            => gob-encoded redisInstancePayload
//	<prefix>idx:all              => SET of all instance ids
//	<prefix>idx:journey:<name>   => SET of instance ids for a given journey
//
// The indexes are best-effort; they are always updated on writes, and
// ListInstances filters on the decoded payload.
//
// Deletion removes the payload key outright: a deleted instance is not
// resolvable and its id is immediately free for a fresh create, which is
// all the soft-delete contract requires.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ api.StateStore = (*RedisStore)(nil)

type redisInstancePayload struct {
	ID          string
	JourneyName string
	StateType   string
	State       []byte
	Steps       []byte
	Completed   bool
	CreatedAt   int64
	UpdatedAt   int64
}

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "journey:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "journey:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) keyInstance(id string) string {
	return s.prefix + "inst:" + id
}

func (s *RedisStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisStore) keyJourney(name string) string {
	return s.prefix + "idx:journey:" + name
}

func encodeRedisPayload(rec *api.StoredInstance) ([]byte, error) {
	state, err := EncodeState(rec.State)
	if err != nil {
		return nil, err
	}
	steps, err := EncodeSteps(rec.Steps)
	if err != nil {
		return nil, err
	}

	payload := redisInstancePayload{
		ID:          rec.ID.String(),
		JourneyName: rec.JourneyName,
		StateType:   rec.StateType,
		State:       state,
		Steps:       steps,
		Completed:   rec.Completed,
		CreatedAt:   rec.CreatedAt.UnixNano(),
		UpdatedAt:   rec.UpdatedAt.UnixNano(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisPayload(data []byte) (*api.StoredInstance, error) {
	if len(data) == 0 {
		return nil, api.ErrInstanceNotFound
	}
	var payload redisInstancePayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	id, err := api.ParseInstanceID(payload.ID)
	if err != nil {
		return nil, err
	}
	state, err := DecodeState(payload.State)
	if err != nil {
		return nil, err
	}
	steps, err := DecodeSteps(payload.Steps)
	if err != nil {
		return nil, err
	}

	return &api.StoredInstance{
		ID:          id,
		JourneyName: payload.JourneyName,
		StateType:   payload.StateType,
		State:       state,
		Steps:       steps,
		Completed:   payload.Completed,
		CreatedAt:   time.Unix(0, payload.CreatedAt),
		UpdatedAt:   time.Unix(0, payload.UpdatedAt),
	}, nil
}

func (s *RedisStore) CreateInstance(ctx context.Context, rec *api.StoredInstance) error {
	now := time.Now()
	stamped := *rec
	stamped.CreatedAt = now
	stamped.UpdatedAt = now

	data, err := encodeRedisPayload(&stamped)
	if err != nil {
		return err
	}

	key := rec.ID.String()
	ok, err := s.client.SetNX(ctx, s.keyInstance(key), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return api.ErrInstanceAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), key)
	pipe.SAdd(ctx, s.keyJourney(rec.JourneyName), key)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisStore) GetInstance(ctx context.Context, id api.InstanceID, stateType string) (*api.StoredInstance, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.StateType != stateType {
		return nil, api.ErrStateTypeMismatch
	}
	return rec, nil
}

func (s *RedisStore) UpdateInstanceState(ctx context.Context, id api.InstanceID, stateType string, state any, steps api.History) error {
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if rec.StateType != stateType {
		return api.ErrStateTypeMismatch
	}
	if rec.Completed {
		return api.ErrInstanceCompleted
	}

	rec.State = state
	rec.Steps = steps
	rec.UpdatedAt = time.Now()
	return s.put(ctx, rec)
}

func (s *RedisStore) CompleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if rec.StateType != stateType {
		return api.ErrStateTypeMismatch
	}
	if rec.Completed {
		return nil
	}

	rec.Completed = true
	rec.UpdatedAt = time.Now()
	return s.put(ctx, rec)
}

func (s *RedisStore) DeleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	key := id.String()

	rec, err := s.get(ctx, id)
	if errors.Is(err, api.ErrInstanceNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyInstance(key))
	pipe.SRem(ctx, s.keyAll(), key)
	pipe.SRem(ctx, s.keyJourney(rec.JourneyName), key)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListInstances(ctx context.Context, filter api.ListFilter) ([]*api.StoredInstance, error) {
	var (
		ids []string
		err error
	)
	if filter.JourneyName != "" {
		ids, err = s.client.SMembers(ctx, s.keyJourney(filter.JourneyName)).Result()
	} else {
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.StoredInstance{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.StoredInstance{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyInstance(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var instances []*api.StoredInstance
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		rec, err := decodeRedisPayload(data)
		if err != nil {
			return nil, err
		}
		if filter.Completed != nil && rec.Completed != *filter.Completed {
			continue
		}
		instances = append(instances, rec)
	}
	return instances, nil
}

func (s *RedisStore) get(ctx context.Context, id api.InstanceID) (*api.StoredInstance, error) {
	data, err := s.client.Get(ctx, s.keyInstance(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, api.ErrInstanceNotFound
		}
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisStore) put(ctx context.Context, rec *api.StoredInstance) error {
	data, err := encodeRedisPayload(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyInstance(rec.ID.String()), data, 0).Err()
}
