package persistence

import (
	"bytes"
	"encoding/gob"

	"github.com/petrijr/journey/pkg/api"
)

// EncodeState serializes an opaque state payload using encoding/gob.
//
// State payloads are encoded as interface values, so their concrete types
// must be registered with gob. The provider registers every journey's state
// pointer type at RegisterJourney time, so callers going through a Provider
// never need to call gob.Register themselves.
func EncodeState(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	// Encode as interface{} so the payload can be decoded without knowing
	// the concrete type at the decode site.
	iv := v
	if err := enc.Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeState reverses EncodeState. It returns nil for empty input.
func DecodeState(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var iv any
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// EncodeSteps serializes a step history.
func EncodeSteps(h api.History) ([]byte, error) {
	if len(h.Steps) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSteps reverses EncodeSteps. It returns an empty history for empty
// input.
func DecodeSteps(data []byte) (api.History, error) {
	if len(data) == 0 {
		return api.History{}, nil
	}
	var h api.History
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&h); err != nil {
		return api.History{}, err
	}
	return h, nil
}
