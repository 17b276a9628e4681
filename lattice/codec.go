package lattice

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode converts a JSON-tagged Go value into the Struct payload carried on the wire.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return msg, nil
}

// Decode fills a JSON-tagged Go value from a Struct payload.
func Decode(msg *structpb.Struct, v any) error {
	if msg == nil {
		msg = &structpb.Struct{}
	}
	data, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
