package persistence

import (
	"context"
	"time"

	"github.com/petrijr/journey/pkg/api"
)

// SQLiteEventStore stores journey lifecycle events in SQLite.
type SQLiteEventStore struct {
	db DBTX
}

// Ensure SQLiteEventStore implements the interface.
var _ EventStore = (*SQLiteEventStore)(nil)

func NewSQLiteEventStore(ctx context.Context, db DBTX) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS journey_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			journey_name TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_journey_events_instance_id ON journey_events(instance_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journey_events (instance_id, at, type, journey_name, detail)
		VALUES (?, ?, ?, ?, ?)`,
		ev.InstanceID,
		at.UnixNano(),
		string(ev.Type),
		ev.JourneyName,
		ev.Detail,
	)
	return err
}

func (s *SQLiteEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, at, type, journey_name, detail
		FROM journey_events
		WHERE instance_id = ?
		ORDER BY id ASC`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.Event
	for rows.Next() {
		var (
			id, typ, name, detail string
			atN                   int64
		)
		if err := rows.Scan(&id, &atN, &typ, &name, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.Event{
			InstanceID:  id,
			At:          time.Unix(0, atN),
			Type:        api.EventType(typ),
			JourneyName: name,
			Detail:      detail,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EventRecorder adapts an EventStore into an api.Observer so lifecycle
// events are appended as they happen. Append failures are dropped; the
// event log is advisory and must never fail a request.
type EventRecorder struct {
	Store EventStore
}

var _ api.Observer = (*EventRecorder)(nil)

func (r *EventRecorder) OnInstanceCreated(ctx context.Context, inst *api.Instance) {
	r.append(ctx, inst, api.EventInstanceCreated, "")
}

func (r *EventRecorder) OnStateUpdated(ctx context.Context, inst *api.Instance) {
	r.append(ctx, inst, api.EventStateUpdated, "")
}

func (r *EventRecorder) OnStepRecorded(ctx context.Context, inst *api.Instance, step api.Step) {
	r.append(ctx, inst, api.EventStepRecorded, step.Path)
}

func (r *EventRecorder) OnInstanceCompleted(ctx context.Context, inst *api.Instance) {
	r.append(ctx, inst, api.EventInstanceCompleted, "")
}

func (r *EventRecorder) OnInstanceDeleted(ctx context.Context, inst *api.Instance) {
	r.append(ctx, inst, api.EventInstanceDeleted, "")
}

func (r *EventRecorder) append(ctx context.Context, inst *api.Instance, typ api.EventType, detail string) {
	_ = r.Store.AppendEvent(ctx, api.Event{
		InstanceID:  inst.ID().String(),
		At:          time.Now(),
		Type:        typ,
		JourneyName: inst.JourneyName(),
		Detail:      detail,
	})
}
