package api

import "encoding/json"

// Codec is a connect.Codec that speaks plain JSON over the types in this
// package. Handlers and clients must both register it; the default Connect
// codecs expect protobuf messages.
type Codec struct{}

// Name reports the codec name Connect uses for content-type negotiation,
// yielding application/json on the wire.
func (Codec) Name() string { return "json" }

// Marshal encodes a payload as JSON.
func (Codec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

// Unmarshal decodes a payload from JSON. Empty bodies decode to the zero
// value, and unknown fields are ignored (additive contract evolution).
func (Codec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, message)
}
