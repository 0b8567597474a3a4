package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec is a google.golang.org/grpc/encoding.Codec over plain Go
// structs. The teacher's gRPC layer carries real protoc-generated
// proto.Message types; this module has no protoc step available, so
// request/response payloads are the plain structs in messages.go encoded
// as JSON on the wire instead. Every other piece of the gRPC stack
// (ServiceDesc, interceptors, keepalive, TLS) is the real grpc-go package,
// unmodified.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

const codecName = "json"
