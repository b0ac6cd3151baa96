package rpc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// protoJSONCodec replaces Connect's default JSON codec so responses keep the schema's
// snake_case field names. Requests accept either naming.
type protoJSONCodec struct{}

func (protoJSONCodec) Name() string { return "json" }

func (protoJSONCodec) Marshal(msg any) ([]byte, error) {
	m, ok := msg.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%T is not a proto.Message", msg)
	}
	return protojson.MarshalOptions{UseProtoNames: true}.Marshal(m)
}

func (protoJSONCodec) Unmarshal(data []byte, msg any) error {
	m, ok := msg.(proto.Message)
	if !ok {
		return fmt.Errorf("%T is not a proto.Message", msg)
	}
	if len(data) == 0 {
		return nil
	}
	if err := protojson.Unmarshal(data, m); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
