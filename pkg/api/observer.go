package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the journey engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay request handling.
type Observer interface {
	// OnInstanceCreated is called once when an instance is first persisted.
	OnInstanceCreated(ctx context.Context, inst *Instance)

	// OnStateUpdated is called after a state mutation has been persisted.
	OnStateUpdated(ctx context.Context, inst *Instance)

	// OnStepRecorded is called after a step transition has been persisted.
	OnStepRecorded(ctx context.Context, inst *Instance, step Step)

	// OnInstanceCompleted is called when an instance transitions to
	// completed.
	OnInstanceCompleted(ctx context.Context, inst *Instance)

	// OnInstanceDeleted is called when an instance is deleted.
	OnInstanceDeleted(ctx context.Context, inst *Instance)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnInstanceCreated(ctx context.Context, inst *Instance)        {}
func (NoopObserver) OnStateUpdated(ctx context.Context, inst *Instance)           {}
func (NoopObserver) OnStepRecorded(ctx context.Context, inst *Instance, s Step)   {}
func (NoopObserver) OnInstanceCompleted(ctx context.Context, inst *Instance)      {}
func (NoopObserver) OnInstanceDeleted(ctx context.Context, inst *Instance)        {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnInstanceCreated(ctx context.Context, inst *Instance) {
	for _, o := range c.observers {
		o.OnInstanceCreated(ctx, inst)
	}
}

func (c *CompositeObserver) OnStateUpdated(ctx context.Context, inst *Instance) {
	for _, o := range c.observers {
		o.OnStateUpdated(ctx, inst)
	}
}

func (c *CompositeObserver) OnStepRecorded(ctx context.Context, inst *Instance, s Step) {
	for _, o := range c.observers {
		o.OnStepRecorded(ctx, inst, s)
	}
}

func (c *CompositeObserver) OnInstanceCompleted(ctx context.Context, inst *Instance) {
	for _, o := range c.observers {
		o.OnInstanceCompleted(ctx, inst)
	}
}

func (c *CompositeObserver) OnInstanceDeleted(ctx context.Context, inst *Instance) {
	for _, o := range c.observers {
		o.OnInstanceDeleted(ctx, inst)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs instance lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnInstanceCreated(ctx context.Context, inst *Instance) {
	o.Logger.InfoContext(ctx, "journey_instance_created",
		slog.String("journey", inst.JourneyName()),
		slog.String("instance_id", inst.ID().String()),
	)
}

func (o *LoggingObserver) OnStateUpdated(ctx context.Context, inst *Instance) {
	o.Logger.DebugContext(ctx, "journey_state_updated",
		slog.String("journey", inst.JourneyName()),
		slog.String("instance_id", inst.ID().String()),
	)
}

func (o *LoggingObserver) OnStepRecorded(ctx context.Context, inst *Instance, s Step) {
	o.Logger.DebugContext(ctx, "journey_step_recorded",
		slog.String("journey", inst.JourneyName()),
		slog.String("instance_id", inst.ID().String()),
		slog.String("step", s.Path),
	)
}

func (o *LoggingObserver) OnInstanceCompleted(ctx context.Context, inst *Instance) {
	o.Logger.InfoContext(ctx, "journey_instance_completed",
		slog.String("journey", inst.JourneyName()),
		slog.String("instance_id", inst.ID().String()),
	)
}

func (o *LoggingObserver) OnInstanceDeleted(ctx context.Context, inst *Instance) {
	o.Logger.InfoContext(ctx, "journey_instance_deleted",
		slog.String("journey", inst.JourneyName()),
		slog.String("instance_id", inst.ID().String()),
	)
}

// BasicMetrics collects simple lifecycle counters. It implements Observer,
// and can be combined with LoggingObserver via NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	instancesCreated   atomic.Int64
	instancesCompleted atomic.Int64
	instancesDeleted   atomic.Int64
	stateUpdates       atomic.Int64
	stepsRecorded      atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	InstancesCreated   int64
	InstancesCompleted int64
	InstancesDeleted   int64
	InFlightInstances  int64

	StateUpdates  int64
	StepsRecorded int64
}

func (m *BasicMetrics) OnInstanceCreated(ctx context.Context, inst *Instance) {
	m.instancesCreated.Add(1)
}

func (m *BasicMetrics) OnStateUpdated(ctx context.Context, inst *Instance) {
	m.stateUpdates.Add(1)
}

func (m *BasicMetrics) OnStepRecorded(ctx context.Context, inst *Instance, s Step) {
	m.stepsRecorded.Add(1)
}

func (m *BasicMetrics) OnInstanceCompleted(ctx context.Context, inst *Instance) {
	m.instancesCompleted.Add(1)
}

func (m *BasicMetrics) OnInstanceDeleted(ctx context.Context, inst *Instance) {
	m.instancesDeleted.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	created := m.instancesCreated.Load()
	completed := m.instancesCompleted.Load()
	deleted := m.instancesDeleted.Load()

	return BasicMetricsSnapshot{
		InstancesCreated:   created,
		InstancesCompleted: completed,
		InstancesDeleted:   deleted,
		InFlightInstances:  created - completed - deleted,
		StateUpdates:       m.stateUpdates.Load(),
		StepsRecorded:      m.stepsRecorded.Load(),
	}
}
