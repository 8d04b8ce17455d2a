package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/journey/pkg/api"
)

// PostgresStore is an api.StateStore backed by PostgreSQL.
//
// It expects a DBTX that uses a Postgres driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq"). The caller is
// responsible for importing the driver.
type PostgresStore struct {
	db DBTX
}

// Ensure PostgresStore implements the interface.
var _ api.StateStore = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given database
// and returns a new PostgresStore.
func NewPostgresStore(ctx context.Context, db DBTX) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// WithTx returns a store bound to tx instead of the database the store was
// created with. The schema is assumed to already exist.
func (s *PostgresStore) WithTx(tx DBTX) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS journey_instances (
			id TEXT PRIMARY KEY,
			journey_name TEXT NOT NULL,
			state_type TEXT NOT NULL,
			state BYTEA,
			steps BYTEA,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journey_instances_name ON journey_instances(journey_name, deleted);`,
	)
	return err
}

func (s *PostgresStore) CreateInstance(ctx context.Context, rec *api.StoredInstance) error {
	state, err := EncodeState(rec.State)
	if err != nil {
		return err
	}
	steps, err := EncodeSteps(rec.Steps)
	if err != nil {
		return err
	}

	key := rec.ID.String()
	now := time.Now().UnixNano()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM journey_instances WHERE id = $1 AND deleted`, key,
	); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO journey_instances (id, journey_name, state_type, state, steps, completed, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		key,
		rec.JourneyName,
		rec.StateType,
		state,
		steps,
		rec.Completed,
		now,
		now,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return api.ErrInstanceAlreadyExists
	}
	return nil
}

func (s *PostgresStore) GetInstance(ctx context.Context, id api.InstanceID, stateType string) (*api.StoredInstance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT journey_name, state_type, state, steps, completed, created_at, updated_at
		FROM journey_instances
		WHERE id = $1 AND NOT deleted`,
		id.String(),
	)
	return scanInstance(row, id, stateType)
}

func (s *PostgresStore) UpdateInstanceState(ctx context.Context, id api.InstanceID, stateType string, state any, steps api.History) error {
	encoded, err := EncodeState(state)
	if err != nil {
		return err
	}
	stepsBytes, err := EncodeSteps(steps)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE journey_instances
		SET state = $1, steps = $2, updated_at = $3
		WHERE id = $4 AND state_type = $5 AND NOT deleted AND NOT completed`,
		encoded,
		stepsBytes,
		time.Now().UnixNano(),
		id.String(),
		stateType,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.explainWriteMiss(ctx, id, stateType)
	}
	return nil
}

func (s *PostgresStore) CompleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE journey_instances
		SET completed = TRUE, updated_at = $1
		WHERE id = $2 AND state_type = $3 AND NOT deleted`,
		time.Now().UnixNano(),
		id.String(),
		stateType,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err := s.explainWriteMiss(ctx, id, stateType)
		if errors.Is(err, api.ErrInstanceCompleted) {
			return nil
		}
		return err
	}
	return nil
}

func (s *PostgresStore) DeleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE journey_instances
		SET deleted = TRUE, updated_at = $1
		WHERE id = $2`,
		time.Now().UnixNano(),
		id.String(),
	)
	return err
}

func (s *PostgresStore) ListInstances(ctx context.Context, filter api.ListFilter) ([]*api.StoredInstance, error) {
	query := `
		SELECT id, journey_name, state_type, state, steps, completed, created_at, updated_at
		FROM journey_instances
		WHERE NOT deleted`
	var args []any

	if filter.JourneyName != "" {
		args = append(args, filter.JourneyName)
		query += " AND journey_name = $1"
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		if len(args) == 1 {
			query += " AND completed = $1"
		} else {
			query += " AND completed = $2"
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*api.StoredInstance
	for rows.Next() {
		var (
			key, journeyName, storedType string
			state, steps                 []byte
			completed                    bool
			createdAt, updatedAt         int64
		)
		if err := rows.Scan(&key, &journeyName, &storedType, &state, &steps, &completed, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		id, err := api.ParseInstanceID(key)
		if err != nil {
			return nil, err
		}
		rec, err := buildRecord(id, journeyName, storedType, state, steps, completed, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		instances = append(instances, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return instances, nil
}

func (s *PostgresStore) explainWriteMiss(ctx context.Context, id api.InstanceID, stateType string) error {
	var (
		storedType string
		completed  bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT state_type, completed
		FROM journey_instances
		WHERE id = $1 AND NOT deleted`,
		id.String(),
	).Scan(&storedType, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return api.ErrInstanceNotFound
	}
	if err != nil {
		return err
	}
	if storedType != stateType {
		return api.ErrStateTypeMismatch
	}
	if completed {
		return api.ErrInstanceCompleted
	}
	return api.ErrInstanceNotFound
}
