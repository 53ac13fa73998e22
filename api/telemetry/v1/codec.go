package telemetryv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Codec marshals TelemetryService messages with their own wire encoding and any generated
// protobuf message (health checks, reflection) with proto. It keeps the "proto" name so
// peers see the standard application/grpc+proto content type.
type Codec struct{}

func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.MarshalWire()
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("telemetryv1: cannot marshal %T", v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.UnmarshalWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("telemetryv1: cannot unmarshal into %T", v)
}
