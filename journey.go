package journey

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/journey/internal/persistence"
	"github.com/petrijr/journey/internal/provider"
	"github.com/petrijr/journey/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Provider             = api.Provider
	Descriptor           = api.Descriptor
	JourneyState         = api.JourneyState
	InstanceID           = api.InstanceID
	KeyValue             = api.KeyValue
	Instance             = api.Instance
	StoredInstance       = api.StoredInstance
	StateStore           = api.StateStore
	StateFactory         = api.StateFactory
	ListFilter           = api.ListFilter
	Step                 = api.Step
	History              = api.History
	RequestContext       = api.RequestContext
	RequestValues        = api.RequestValues
	Event                = api.Event
	EventType            = api.EventType
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	NoopObserver         = api.NoopObserver
	CompositeObserver    = api.CompositeObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
)

// Re-export common helpers.

var (
	NewRequestContext     = api.NewRequestContext
	RequestContextFromURL = api.RequestContextFromURL
	NewRequestValues      = api.NewRequestValues
	RequestValuesFromURL  = api.RequestValuesFromURL
	NewStep               = api.NewStep
	NewHistory            = api.NewHistory
	ResolveInstanceID     = api.ResolveInstanceID
	ParseInstanceID       = api.ParseInstanceID
	NewLoggingObserver    = api.NewLoggingObserver
	NewCompositeObserver  = api.NewCompositeObserver
)

// Re-export sentinel errors for errors.Is checks at call sites.

var (
	ErrInstanceNotFound         = api.ErrInstanceNotFound
	ErrInstanceAlreadyExists    = api.ErrInstanceAlreadyExists
	ErrInstanceCompleted        = api.ErrInstanceCompleted
	ErrInstanceDeleted          = api.ErrInstanceDeleted
	ErrStateTypeMismatch        = api.ErrStateTypeMismatch
	ErrJourneyAlreadyRegistered = api.ErrJourneyAlreadyRegistered
	ErrJourneyNotRegistered     = api.ErrJourneyNotRegistered
	ErrMissingIdentityValue     = api.ErrMissingIdentityValue
	ErrStepNotRecorded          = api.ErrStepNotRecorded
)

// UniqueKeyParamName is the reserved query-string parameter that carries an
// instance's random unique key.
const UniqueKeyParamName = api.UniqueKeyParamName

// Lifecycle event types, as they appear in the event log.
const (
	EventInstanceCreated   = api.EventInstanceCreated
	EventStateUpdated      = api.EventStateUpdated
	EventStepRecorded      = api.EventStepRecorded
	EventInstanceCompleted = api.EventInstanceCompleted
	EventInstanceDeleted   = api.EventInstanceDeleted
)

// NewDescriptor builds a Descriptor for journeys whose state payload is T.
func NewDescriptor[T any](journeyName string, keys []string, appendUniqueKey bool) Descriptor {
	return api.NewDescriptor[T](journeyName, keys, appendUniqueKey)
}

// Provider constructors
// These wrap the internal packages so external callers never need to import
// them.

// NewInMemoryProvider returns a Provider backed entirely by in-memory
// stores, including an in-memory event log. Best for tests and
// single-process use.
func NewInMemoryProvider() Provider {
	return provider.NewWithConfig(provider.Config{
		Store:  persistence.NewInMemoryStore(),
		Events: persistence.NewInMemoryEventStore(),
	})
}

// NewInMemoryProviderWithObserver returns an in-memory Provider with the
// given Observer.
func NewInMemoryProviderWithObserver(obs Observer) Provider {
	return provider.NewWithConfig(provider.Config{
		Store:    persistence.NewInMemoryStore(),
		Events:   persistence.NewInMemoryEventStore(),
		Observer: obs,
	})
}

// NewSQLiteProvider returns a Provider that persists instances and the
// event log in SQLite. The caller is responsible for importing a SQLite
// driver (for example "modernc.org/sqlite").
func NewSQLiteProvider(ctx context.Context, db *sql.DB) (Provider, error) {
	return NewSQLiteProviderWithObserver(ctx, db, nil)
}

// NewSQLiteProviderWithObserver is NewSQLiteProvider with an Observer.
func NewSQLiteProviderWithObserver(ctx context.Context, db *sql.DB, obs Observer) (Provider, error) {
	store, err := persistence.NewSQLiteStore(ctx, db)
	if err != nil {
		return nil, err
	}
	events, err := persistence.NewSQLiteEventStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return provider.NewWithConfig(provider.Config{
		Store:    store,
		Events:   events,
		Observer: obs,
	}), nil
}

// NewPostgresProvider returns a Provider that persists instances in
// PostgreSQL. The caller is responsible for importing a Postgres driver.
// The event log stays in-memory; use NewProviderWithConfig-style wiring via
// NewProvider if a durable log is needed.
func NewPostgresProvider(ctx context.Context, db *sql.DB) (Provider, error) {
	store, err := persistence.NewPostgresStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return provider.NewWithConfig(provider.Config{
		Store:  store,
		Events: persistence.NewInMemoryEventStore(),
	}), nil
}

// NewRedisProvider returns a Provider that persists instances in Redis
// under the given key prefix (e.g. "journey:").
func NewRedisProvider(client *redis.Client, prefix string) Provider {
	return provider.NewWithConfig(provider.Config{
		Store:  persistence.NewRedisStore(client, prefix),
		Events: persistence.NewInMemoryEventStore(),
	})
}

// NewProvider returns a Provider backed by a custom StateStore, with no
// event log.
func NewProvider(store StateStore) Provider {
	return provider.New(store)
}

// NewProviderWithObserver returns a Provider backed by a custom StateStore
// and the given Observer.
func NewProviderWithObserver(store StateStore, obs Observer) Provider {
	return provider.NewWithConfig(provider.Config{
		Store:    store,
		Observer: obs,
	})
}
