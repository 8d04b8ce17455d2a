package api

import (
	"context"
	"errors"
	"net/url"
)

var (
	// ErrJourneyAlreadyRegistered is returned when a journey name is
	// registered twice.
	ErrJourneyAlreadyRegistered = errors.New("journey: journey already registered")

	// ErrJourneyNotRegistered is returned when an operation names a journey
	// the provider has never seen. It indicates a configuration defect, not
	// a user-facing not-found.
	ErrJourneyNotRegistered = errors.New("journey: journey not registered")
)

// StateFactory builds the initial state for a new instance. It must return
// a pointer to the journey's state struct (*T for a journey declared with
// NewDescriptor[T]).
type StateFactory func(ctx context.Context) (any, error)

// Provider resolves, creates and caches journey instances for requests.
type Provider interface {
	// RegisterJourney adds a journey definition. Registering the same name
	// twice returns ErrJourneyAlreadyRegistered.
	RegisterJourney(d Descriptor) error

	// JourneyByName looks up a registered descriptor.
	JourneyByName(name string) (Descriptor, bool)

	// CreateInstance computes the id implied by the request, builds the
	// initial state via newState, and persists a new instance. It returns
	// ErrInstanceAlreadyExists when a live instance with that id exists.
	CreateInstance(ctx context.Context, req *RequestContext, journeyName string, newState StateFactory) (*Instance, error)

	// GetInstance returns the instance implied by the request, or nil (with
	// a nil error) when the id cannot be resolved from the request, no
	// stored instance exists, the instance was deleted, or the stored state
	// type does not match the journey's descriptor.
	GetInstance(ctx context.Context, req *RequestContext, journeyName string) (*Instance, error)

	// GetOrCreateInstance returns the existing instance for the request or
	// creates one via newState. It is the idiomatic entry point for most
	// handlers.
	GetOrCreateInstance(ctx context.Context, req *RequestContext, journeyName string, newState StateFactory) (*Instance, error)

	// IsCurrentInstance reports whether id equals the id resolvable from
	// the request. Handlers use it to refuse acting on an instance that is
	// not the one the URL implies.
	IsCurrentInstance(req *RequestContext, journeyName string, id InstanceID) bool

	// ListInstances returns live stored instances matching the filter.
	ListInstances(ctx context.Context, filter ListFilter) ([]*StoredInstance, error)

	// Events returns the append-only lifecycle history of an instance, in
	// order of occurrence. Providers without an event log return nil.
	Events(ctx context.Context, id InstanceID) ([]Event, error)
}

// RequestContext carries everything the provider needs from one inbound
// request: the ambient values identity is resolved from, the current URL
// (which seeds step history and names the current step), and the
// per-request instance cache.
//
// Build one RequestContext per request and pass it explicitly; nothing is
// stashed in ambient storage, which keeps the engine testable without a web
// framework. A RequestContext is not safe for concurrent use.
type RequestContext struct {
	values     RequestValues
	currentURL string

	cache map[string]*Instance
}

// NewRequestContext builds a RequestContext from the request's URL (path
// plus query string) and its ambient values.
func NewRequestContext(currentURL string, values RequestValues) *RequestContext {
	return &RequestContext{
		values:     values,
		currentURL: currentURL,
		cache:      make(map[string]*Instance),
	}
}

// RequestContextFromURL is a convenience for HTTP handlers: it derives both
// the current URL and the query-half of the ambient values from u, merging
// route over them.
func RequestContextFromURL(u *url.URL, route map[string]string) *RequestContext {
	return NewRequestContext(u.RequestURI(), RequestValuesFromURL(u, route))
}

// Values returns the request's ambient values.
func (rc *RequestContext) Values() RequestValues { return rc.values }

// CurrentURL returns the request's URL including the query string.
func (rc *RequestContext) CurrentURL() string { return rc.currentURL }

// CurrentPath returns the request URL's path, the identity of the current
// step.
func (rc *RequestContext) CurrentPath() string { return NewStep(rc.currentURL).Path }

// CachedInstance returns the instance already resolved for journeyName in
// this request, if any.
func (rc *RequestContext) CachedInstance(journeyName string) (*Instance, bool) {
	inst, ok := rc.cache[journeyName]
	return inst, ok
}

// CacheInstance records the resolved instance for journeyName so later
// reads within the same request reuse it.
func (rc *RequestContext) CacheInstance(journeyName string, inst *Instance) {
	rc.cache[journeyName] = inst
}
