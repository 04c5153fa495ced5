package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct converts a request or response into the Struct carried on the
// wire. Field names are the JSON names of v.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	st := &structpb.Struct{}
	if string(data) == "null" {
		return st, nil
	}
	if err := protojson.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return st, nil
}

// fromStruct decodes a wire Struct into v. A nil Struct leaves v unchanged.
func fromStruct(st *structpb.Struct, v any) error {
	if st == nil {
		return nil
	}
	data, err := protojson.Marshal(st)
	if err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}
