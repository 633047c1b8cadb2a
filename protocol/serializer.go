package protocol

import "encoding/json"

// Serializer defines the contract for serializing and deserializing request
// payloads and snapshots. Hosts may swap the format (JSON, Protobuf, ...)
// without touching the engine.
type Serializer interface {
	// Marshal serializes a Go struct into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a Go struct.
	// v must be a pointer to the target struct.
	Unmarshal(data []byte, v any) error
}

// DefaultJSONSerializer is the stdlib JSON implementation of Serializer.
type DefaultJSONSerializer struct{}

func (s *DefaultJSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (s *DefaultJSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
