package provider

import (
	"encoding/gob"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/petrijr/journey/pkg/api"
)

// journeyRegistry is the name -> descriptor catalog. It is populated once
// at process start from an explicit registration list; there is no runtime
// scanning.
type journeyRegistry struct {
	mu     sync.RWMutex
	byName map[string]api.Descriptor
}

func newJourneyRegistry() *journeyRegistry {
	return &journeyRegistry{
		byName: make(map[string]api.Descriptor),
	}
}

func (r *journeyRegistry) Register(d api.Descriptor) error {
	if d.JourneyName == "" {
		return fmt.Errorf("journey: descriptor has no journey name")
	}
	if d.StateType == nil {
		return fmt.Errorf("journey: descriptor %q has no state type", d.JourneyName)
	}

	seen := make(map[string]struct{}, len(d.Keys))
	for _, key := range d.Keys {
		k := strings.ToLower(key)
		if k == api.UniqueKeyParamName {
			// The unique-key parameter is reserved; an id carrying it as a
			// regular pair would not survive the String/Parse round trip.
			return fmt.Errorf("journey: descriptor %q declares reserved identity key %q", d.JourneyName, key)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("journey: descriptor %q declares identity key %q twice", d.JourneyName, key)
		}
		seen[k] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.JourneyName]; exists {
		return fmt.Errorf("%w: %q", api.ErrJourneyAlreadyRegistered, d.JourneyName)
	}

	// State payloads are persisted as gob interface values; registering the
	// pointer type here means no journey author ever calls gob.Register.
	gob.Register(reflect.New(d.StateType).Interface())

	r.byName[d.JourneyName] = d
	return nil
}

func (r *journeyRegistry) Get(name string) (api.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[name]
	return d, ok
}
