package core

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec serializes the durable records.
// Values are private state, not a wire protocol, so any structured text
// format works as long as it round-trips.
type Codec interface {
	// Name is a short identifier ("json", "yaml").
	Name() string
	// Ext is the conventional file extension including the dot.
	Ext() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec encodes records as indented JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Ext() string  { return ".json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// YAMLCodec encodes records as YAML documents.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }
func (YAMLCodec) Ext() string  { return ".yaml" }

func (YAMLCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// CodecByName returns the codec registered under name.
// An empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, name)
	}
}
