package api

import (
	"net/url"
	"strings"
)

// RequestValues is the source of ambient key/value pairs an InstanceID is
// resolved from: route values merged over query-string values. Lookup is
// case-insensitive. Route values take precedence over query values with the
// same name.
//
// RequestValues is deliberately framework-agnostic; adapters for any router
// reduce to building one of these per request.
type RequestValues struct {
	m map[string]string
}

// NewRequestValues merges route values over query values into a RequestValues.
// Either argument may be nil. Only the first value of a multi-valued query
// key is considered.
func NewRequestValues(route map[string]string, query url.Values) RequestValues {
	m := make(map[string]string, len(route)+len(query))
	for k, vs := range query {
		if len(vs) > 0 {
			m[strings.ToLower(k)] = vs[0]
		}
	}
	for k, v := range route {
		m[strings.ToLower(k)] = v
	}
	return RequestValues{m: m}
}

// RequestValuesFromURL builds RequestValues from a request URL's query
// string plus optional route values.
func RequestValuesFromURL(u *url.URL, route map[string]string) RequestValues {
	if u == nil {
		return NewRequestValues(route, nil)
	}
	return NewRequestValues(route, u.Query())
}

// Get returns the value for key, looked up case-insensitively.
func (v RequestValues) Get(key string) (string, bool) {
	val, ok := v.m[strings.ToLower(key)]
	return val, ok
}

// With returns a copy of v with key set. Useful in tests and when a handler
// needs to inject a value the transport layer did not supply.
func (v RequestValues) With(key, value string) RequestValues {
	m := make(map[string]string, len(v.m)+1)
	for k, val := range v.m {
		m[k] = val
	}
	m[strings.ToLower(key)] = value
	return RequestValues{m: m}
}

// Len returns the number of distinct keys.
func (v RequestValues) Len() int {
	return len(v.m)
}
