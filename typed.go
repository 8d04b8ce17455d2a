package journey

import (
	"context"

	"github.com/petrijr/journey/pkg/api"
)

// TypedInstance is a typed view over an Instance whose state payload is *T.
type TypedInstance[T any] = api.TypedInstance[T]

// Typed returns a typed view of inst for state type T.
func Typed[T any](inst *Instance) (*TypedInstance[T], error) {
	return api.Typed[T](inst)
}

// RegisterStates registers the journeys declared by the given state values.
// It is the idiomatic way to wire a Provider at startup:
//
//	err := journey.RegisterStates(p,
//		MergePersonState{},
//		ResolveTRNRequestState{},
//		AddRouteState{},
//	)
func RegisterStates(p Provider, states ...JourneyState) error {
	for _, s := range states {
		if err := p.RegisterJourney(s.JourneyDescriptor()); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the typed instance implied by the request, or nil when no
// instance can be resolved (no error in that case; the handler responds
// not-found).
func Get[T any](ctx context.Context, p Provider, req *RequestContext, journeyName string) (*TypedInstance[T], error) {
	inst, err := p.GetInstance(ctx, req, journeyName)
	if err != nil || inst == nil {
		return nil, err
	}
	return api.Typed[T](inst)
}

// Create creates a new typed instance for the request, with initial state
// built by newState. It fails with ErrInstanceAlreadyExists when a live
// instance with the same id exists.
func Create[T any](ctx context.Context, p Provider, req *RequestContext, journeyName string, newState func() *T) (*TypedInstance[T], error) {
	inst, err := p.CreateInstance(ctx, req, journeyName, stateFactory(newState))
	if err != nil {
		return nil, err
	}
	return api.Typed[T](inst)
}

// GetOrCreate returns the existing typed instance for the request or
// creates one. This is the idiomatic entry point for most handlers.
func GetOrCreate[T any](ctx context.Context, p Provider, req *RequestContext, journeyName string, newState func() *T) (*TypedInstance[T], error) {
	inst, err := p.GetOrCreateInstance(ctx, req, journeyName, stateFactory(newState))
	if err != nil {
		return nil, err
	}
	return api.Typed[T](inst)
}

func stateFactory[T any](newState func() *T) StateFactory {
	if newState == nil {
		return nil
	}
	return func(ctx context.Context) (any, error) {
		return newState(), nil
	}
}
