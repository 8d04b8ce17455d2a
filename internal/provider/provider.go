// Package provider contains the orchestration layer of the journey engine:
// it resolves instance identity from requests, drives the state store, and
// maintains the per-request instance cache.
package provider

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/petrijr/journey/internal/persistence"
	"github.com/petrijr/journey/pkg/api"
)

// Config describes how to construct a provider.
// Only used inside this package; external callers use the constructors in
// the journey package.
type Config struct {
	Store    api.StateStore
	Events   persistence.EventStore
	Observer api.Observer
}

type providerImpl struct {
	store    api.StateStore
	events   persistence.EventStore
	observer api.Observer
	registry *journeyRegistry
}

// New returns a Provider backed by the given store, with no observer and no
// event log.
func New(store api.StateStore) api.Provider {
	return NewWithConfig(Config{Store: store})
}

// NewWithConfig creates a Provider using the given configuration.
func NewWithConfig(cfg Config) api.Provider {
	events := cfg.Events
	if events == nil {
		events = persistence.NoopEventStore{}
	}

	// The event log rides on the observer pipeline, alongside any observer
	// the caller supplied.
	observer := api.NewCompositeObserver(cfg.Observer, &persistence.EventRecorder{Store: events})

	return &providerImpl{
		store:    cfg.Store,
		events:   events,
		observer: observer,
		registry: newJourneyRegistry(),
	}
}

func (p *providerImpl) RegisterJourney(d api.Descriptor) error {
	return p.registry.Register(d)
}

func (p *providerImpl) JourneyByName(name string) (api.Descriptor, bool) {
	return p.registry.Get(name)
}

func (p *providerImpl) descriptor(name string) (api.Descriptor, error) {
	d, ok := p.registry.Get(name)
	if !ok {
		return api.Descriptor{}, fmt.Errorf("%w: %q", api.ErrJourneyNotRegistered, name)
	}
	return d, nil
}

func (p *providerImpl) CreateInstance(ctx context.Context, req *api.RequestContext, journeyName string, newState api.StateFactory) (*api.Instance, error) {
	d, err := p.descriptor(journeyName)
	if err != nil {
		return nil, err
	}
	if newState == nil {
		return nil, fmt.Errorf("journey: initial state factory is required (journey %q)", journeyName)
	}

	id, err := api.NewInstanceID(d, req.Values())
	if err != nil {
		return nil, err
	}

	state, err := newState(ctx)
	if err != nil {
		return nil, err
	}
	if reflect.TypeOf(state) != reflect.PointerTo(d.StateType) {
		return nil, fmt.Errorf("%w: factory for journey %q returned %T, want *%s",
			api.ErrStateTypeMismatch, journeyName, state, d.StateTypeName())
	}

	// The entry step carries the freshly minted unique key so the redirect
	// back to this URL resolves to the new instance.
	entry := api.NewStep(id.AppendToURL(req.CurrentURL()))

	rec := &api.StoredInstance{
		ID:          id,
		JourneyName: d.JourneyName,
		StateType:   d.StateTypeName(),
		State:       state,
		Steps:       api.NewHistory(entry),
	}
	if err := p.store.CreateInstance(ctx, rec); err != nil {
		return nil, err
	}

	inst := api.NewInstance(p.store, p.observer, rec)
	p.observer.OnInstanceCreated(ctx, inst)
	req.CacheInstance(journeyName, inst)
	return inst, nil
}

func (p *providerImpl) GetInstance(ctx context.Context, req *api.RequestContext, journeyName string) (*api.Instance, error) {
	d, err := p.descriptor(journeyName)
	if err != nil {
		return nil, err
	}

	if inst, ok := req.CachedInstance(journeyName); ok {
		if inst == nil || inst.Deleted() {
			return nil, nil
		}
		return inst, nil
	}

	id, ok := api.ResolveInstanceID(d, req.Values())
	if !ok {
		req.CacheInstance(journeyName, nil)
		return nil, nil
	}

	rec, err := p.store.GetInstance(ctx, id, d.StateTypeName())
	if err != nil {
		if errors.Is(err, api.ErrInstanceNotFound) || errors.Is(err, api.ErrStateTypeMismatch) {
			req.CacheInstance(journeyName, nil)
			return nil, nil
		}
		return nil, err
	}
	if rec.JourneyName != d.JourneyName {
		req.CacheInstance(journeyName, nil)
		return nil, nil
	}

	inst := api.NewInstance(p.store, p.observer, rec)
	req.CacheInstance(journeyName, inst)
	return inst, nil
}

func (p *providerImpl) GetOrCreateInstance(ctx context.Context, req *api.RequestContext, journeyName string, newState api.StateFactory) (*api.Instance, error) {
	inst, err := p.GetInstance(ctx, req, journeyName)
	if err != nil {
		return nil, err
	}
	if inst != nil {
		return inst, nil
	}
	return p.CreateInstance(ctx, req, journeyName, newState)
}

func (p *providerImpl) IsCurrentInstance(req *api.RequestContext, journeyName string, id api.InstanceID) bool {
	d, ok := p.registry.Get(journeyName)
	if !ok {
		return false
	}
	resolved, ok := api.ResolveInstanceID(d, req.Values())
	if !ok {
		return false
	}
	return resolved.Equal(id)
}

func (p *providerImpl) ListInstances(ctx context.Context, filter api.ListFilter) ([]*api.StoredInstance, error) {
	return p.store.ListInstances(ctx, filter)
}

func (p *providerImpl) Events(ctx context.Context, id api.InstanceID) ([]api.Event, error) {
	return p.events.ListEvents(ctx, id.String())
}
