package api

import (
	"reflect"
)

// Descriptor describes one journey: a named, multi-page user workflow with
// persisted, resumable state.
//
// Descriptors are immutable once constructed. Build them with NewDescriptor
// and register them with a Provider before creating instances.
type Descriptor struct {
	// JourneyName uniquely identifies the journey within a Provider.
	JourneyName string

	// StateType is the Go type of the state payload (T, not *T).
	// Instances of this journey carry their state as *T.
	StateType reflect.Type

	// Keys lists the request-value names that form an instance's identity,
	// in declaration order. The order is significant: it fixes the
	// serialized form of every InstanceID of this journey.
	Keys []string

	// AppendUniqueKey indicates that a random unique key is appended to
	// each instance id, so several occurrences of this journey can run
	// concurrently for the same subject.
	AppendUniqueKey bool
}

// NewDescriptor builds a Descriptor for journeys whose state payload is T.
//
// keys are the request-value names that identify one running occurrence
// (for example "personId"). appendUniqueKey requests a per-instance random
// key on top of those values.
func NewDescriptor[T any](journeyName string, keys []string, appendUniqueKey bool) Descriptor {
	return Descriptor{
		JourneyName:     journeyName,
		StateType:       reflect.TypeOf((*T)(nil)).Elem(),
		Keys:            append([]string(nil), keys...),
		AppendUniqueKey: appendUniqueKey,
	}
}

// StateTypeName returns the stable tag stored alongside persisted state and
// compared when an instance is resolved for a handler.
func (d Descriptor) StateTypeName() string {
	return typeName(d.StateType)
}

// IsZero reports whether d is the zero Descriptor.
func (d Descriptor) IsZero() bool {
	return d.JourneyName == "" && d.StateType == nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// JourneyState is implemented by state types that carry their own
// Descriptor. It lets applications keep the journey declaration next to the
// state type and register everything in one explicit list at startup:
//
//	type MergePersonState struct { ... }
//
//	func (MergePersonState) JourneyDescriptor() api.Descriptor {
//		return api.NewDescriptor[MergePersonState]("merge-person", []string{"personId"}, true)
//	}
type JourneyState interface {
	JourneyDescriptor() Descriptor
}
