package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/journey/pkg/api"
)

// DBTX is the subset of database/sql operations the SQL stores need. Both
// *sql.DB and *sql.Tx satisfy it, so a store can be bound to the caller's
// transaction and journey-state writes commit atomically with whatever
// domain writes the handler made in the same unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is an api.StateStore backed by SQLite.
//
// It expects a DBTX that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db DBTX
}

// Ensure SQLiteStore implements the interface.
var _ api.StateStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(ctx context.Context, db DBTX) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// WithTx returns a store bound to tx instead of the database the store was
// created with. The schema is assumed to already exist. Use it to make
// journey-state writes part of the caller's transaction.
func (s *SQLiteStore) WithTx(tx DBTX) *SQLiteStore {
	return &SQLiteStore{db: tx}
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS journey_instances (
			id TEXT PRIMARY KEY,
			journey_name TEXT NOT NULL,
			state_type TEXT NOT NULL,
			state BLOB,
			steps BLOB,
			completed INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journey_instances_name ON journey_instances(journey_name, deleted);`,
	)
	return err
}

func (s *SQLiteStore) CreateInstance(ctx context.Context, rec *api.StoredInstance) error {
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

	// A soft-deleted row with the same id no longer matters; make room.
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM journey_instances WHERE id = ? AND deleted = 1`, key,
	); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO journey_instances (id, journey_name, state_type, state, steps, completed, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		key,
		rec.JourneyName,
		rec.StateType,
		state,
		steps,
		boolToInt(rec.Completed),
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

func (s *SQLiteStore) GetInstance(ctx context.Context, id api.InstanceID, stateType string) (*api.StoredInstance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT journey_name, state_type, state, steps, completed, created_at, updated_at
		FROM journey_instances
		WHERE id = ? AND deleted = 0`,
		id.String(),
	)
	return scanInstance(row, id, stateType)
}

func (s *SQLiteStore) UpdateInstanceState(ctx context.Context, id api.InstanceID, stateType string, state any, steps api.History) error {
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
		SET state = ?, steps = ?, updated_at = ?
		WHERE id = ? AND state_type = ? AND deleted = 0 AND completed = 0`,
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

func (s *SQLiteStore) CompleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE journey_instances
		SET completed = 1, updated_at = ?
		WHERE id = ? AND state_type = ? AND deleted = 0`,
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
			// Already completed; completion is idempotent.
			return nil
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) DeleteInstance(ctx context.Context, id api.InstanceID, stateType string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE journey_instances
		SET deleted = 1, updated_at = ?
		WHERE id = ?`,
		time.Now().UnixNano(),
		id.String(),
	)
	return err
}

func (s *SQLiteStore) ListInstances(ctx context.Context, filter api.ListFilter) ([]*api.StoredInstance, error) {
	query := `
		SELECT id, journey_name, state_type, state, steps, completed, created_at, updated_at
		FROM journey_instances
		WHERE deleted = 0`
	var args []any

	if filter.JourneyName != "" {
		query += " AND journey_name = ?"
		args = append(args, filter.JourneyName)
	}
	if filter.Completed != nil {
		query += " AND completed = ?"
		args = append(args, boolToInt(*filter.Completed))
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
			completed                    int
			createdAt, updatedAt         int64
		)
		if err := rows.Scan(&key, &journeyName, &storedType, &state, &steps, &completed, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		id, err := api.ParseInstanceID(key)
		if err != nil {
			return nil, err
		}
		rec, err := buildRecord(id, journeyName, storedType, state, steps, completed != 0, createdAt, updatedAt)
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

// explainWriteMiss turns a zero-rows-affected write into the sentinel the
// caller expects: not found, type mismatch, or completed.
func (s *SQLiteStore) explainWriteMiss(ctx context.Context, id api.InstanceID, stateType string) error {
	var (
		storedType string
		completed  int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT state_type, completed
		FROM journey_instances
		WHERE id = ? AND deleted = 0`,
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
	if completed != 0 {
		return api.ErrInstanceCompleted
	}
	return api.ErrInstanceNotFound
}

func scanInstance(row *sql.Row, id api.InstanceID, stateType string) (*api.StoredInstance, error) {
	var (
		journeyName, storedType string
		state, steps            []byte
		completed               int
		createdAt, updatedAt    int64
	)
	if err := row.Scan(&journeyName, &storedType, &state, &steps, &completed, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrInstanceNotFound
		}
		return nil, err
	}
	if storedType != stateType {
		return nil, api.ErrStateTypeMismatch
	}
	return buildRecord(id, journeyName, storedType, state, steps, completed != 0, createdAt, updatedAt)
}

func buildRecord(id api.InstanceID, journeyName, stateType string, state, steps []byte, completed bool, createdAt, updatedAt int64) (*api.StoredInstance, error) {
	stateVal, err := DecodeState(state)
	if err != nil {
		return nil, err
	}
	history, err := DecodeSteps(steps)
	if err != nil {
		return nil, err
	}
	return &api.StoredInstance{
		ID:          id,
		JourneyName: journeyName,
		StateType:   stateType,
		State:       stateVal,
		Steps:       history,
		Completed:   completed,
		CreatedAt:   time.Unix(0, createdAt),
		UpdatedAt:   time.Unix(0, updatedAt),
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
