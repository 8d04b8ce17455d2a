package api

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// UniqueKeyParamName is the reserved query-string parameter that carries an
// instance's random unique key for journeys declared with AppendUniqueKey.
const UniqueKeyParamName = "_uniq"

// ErrMissingIdentityValue is returned by NewInstanceID when one of the
// descriptor's identity keys has no value in the request. It indicates the
// caller tried to start a journey without the context the journey is keyed
// on, which is a defect in the calling flow rather than user input.
var ErrMissingIdentityValue = errors.New("journey: missing identity value")

// KeyValue is one identity key/value pair of an InstanceID.
type KeyValue struct {
	Key   string
	Value string
}

// InstanceID identifies one running occurrence of a journey.
//
// It is derived deterministically from a Descriptor and the ambient request
// values: the journey name, the identity key/value pairs in the descriptor's
// declared order, and (for journeys with AppendUniqueKey) a random unique
// key. Two computations over the same logical values produce bit-identical
// serialized ids, so the id can safely appear in URLs and act as a store key.
type InstanceID struct {
	// JourneyName is the name of the journey this id belongs to.
	JourneyName string

	// Keys holds the identity key/value pairs in descriptor order.
	Keys []KeyValue

	// UniqueKey is the random per-instance key, or "" for journeys that do
	// not append one.
	UniqueKey string
}

// ResolveInstanceID computes the id of the instance implied by the given
// request values. It reports ok=false when any identity key (or, for
// journeys with AppendUniqueKey, the unique-key parameter) is absent from
// the request; that models "navigated here without the right context" and
// is not an error.
func ResolveInstanceID(d Descriptor, values RequestValues) (InstanceID, bool) {
	id := InstanceID{JourneyName: d.JourneyName}

	for _, key := range d.Keys {
		v, ok := values.Get(key)
		if !ok {
			return InstanceID{}, false
		}
		id.Keys = append(id.Keys, KeyValue{Key: key, Value: v})
	}

	if d.AppendUniqueKey {
		v, ok := values.Get(UniqueKeyParamName)
		if !ok || v == "" {
			return InstanceID{}, false
		}
		id.UniqueKey = v
	}

	return id, true
}

// NewInstanceID computes an id for creating a new instance. All identity
// keys must be present in the request values; a missing key returns
// ErrMissingIdentityValue. If the descriptor appends a unique key and the
// request does not already carry one, a fresh random key is minted.
func NewInstanceID(d Descriptor, values RequestValues) (InstanceID, error) {
	id := InstanceID{JourneyName: d.JourneyName}

	for _, key := range d.Keys {
		v, ok := values.Get(key)
		if !ok {
			return InstanceID{}, fmt.Errorf("%w: %q (journey %q)", ErrMissingIdentityValue, key, d.JourneyName)
		}
		id.Keys = append(id.Keys, KeyValue{Key: key, Value: v})
	}

	if d.AppendUniqueKey {
		if v, ok := values.Get(UniqueKeyParamName); ok && v != "" {
			id.UniqueKey = v
		} else {
			id.UniqueKey = uuid.NewString()
		}
	}

	return id, nil
}

// Equal reports whether two ids identify the same instance: same journey
// name, same identity pairs in the same order, same unique key.
func (id InstanceID) Equal(other InstanceID) bool {
	if id.JourneyName != other.JourneyName || id.UniqueKey != other.UniqueKey {
		return false
	}
	if len(id.Keys) != len(other.Keys) {
		return false
	}
	for i, kv := range id.Keys {
		if other.Keys[i] != kv {
			return false
		}
	}
	return true
}

// IsZero reports whether id is the zero InstanceID.
func (id InstanceID) IsZero() bool {
	return id.JourneyName == "" && len(id.Keys) == 0 && id.UniqueKey == ""
}

// String returns the compact wire form of the id:
//
//	journeyName?key1=v1&key2=v2&_uniq=key
//
// Identity keys appear in descriptor order, so the output is deterministic
// for a given logical id. The result round-trips through ParseInstanceID.
func (id InstanceID) String() string {
	var sb strings.Builder
	sb.WriteString(url.QueryEscape(id.JourneyName))
	sep := byte('?')
	for _, kv := range id.Keys {
		sb.WriteByte(sep)
		sep = '&'
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	if id.UniqueKey != "" {
		sb.WriteByte(sep)
		sb.WriteString(UniqueKeyParamName)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(id.UniqueKey))
	}
	return sb.String()
}

// ParseInstanceID parses the wire form produced by String.
func ParseInstanceID(s string) (InstanceID, error) {
	name, rest, hasValues := strings.Cut(s, "?")
	unescaped, err := url.QueryUnescape(name)
	if err != nil || unescaped == "" {
		return InstanceID{}, fmt.Errorf("journey: malformed instance id %q", s)
	}

	id := InstanceID{JourneyName: unescaped}
	if !hasValues {
		return id, nil
	}

	for _, pair := range strings.Split(rest, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return InstanceID{}, fmt.Errorf("journey: malformed instance id %q", s)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return InstanceID{}, fmt.Errorf("journey: malformed instance id %q", s)
		}
		if key == UniqueKeyParamName {
			id.UniqueKey = value
			continue
		}
		id.Keys = append(id.Keys, KeyValue{Key: key, Value: value})
	}

	return id, nil
}

// Query returns the id's identity values (and unique key, if any) as
// url.Values, ready to be merged into a link that should target this
// instance.
func (id InstanceID) Query() url.Values {
	q := url.Values{}
	for _, kv := range id.Keys {
		q.Set(kv.Key, kv.Value)
	}
	if id.UniqueKey != "" {
		q.Set(UniqueKeyParamName, id.UniqueKey)
	}
	return q
}

// AppendToURL returns rawURL with the id's unique key added to the query
// string, unless the URL already carries one. URLs that cannot be parsed are
// returned unchanged. Ids without a unique key leave the URL untouched.
func (id InstanceID) AppendToURL(rawURL string) string {
	if id.UniqueKey == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Get(UniqueKeyParamName) != "" {
		return rawURL
	}
	q.Set(UniqueKeyParamName, id.UniqueKey)
	u.RawQuery = q.Encode()
	return u.String()
}
