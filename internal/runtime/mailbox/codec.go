package mailbox

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	jsoncodecpkg "github.com/drblury/chanflow/internal/runtime/jsoncodec"
)

// Codec turns messages into mailbox payloads and back.
type Codec[T any] interface {
	Name() string
	Encode(message T) ([]byte, error)
	Decode(payload []byte) (T, error)
}

// JSONCodec encodes messages as JSON.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Name() string { return "json" }

func (JSONCodec[T]) Encode(message T) ([]byte, error) {
	return jsoncodecpkg.Marshal(message)
}

func (JSONCodec[T]) Decode(payload []byte) (T, error) {
	var out T
	if err := jsoncodecpkg.Unmarshal(payload, &out); err != nil {
		return out, err
	}
	return out, nil
}

// ProtoCodec encodes protobuf messages with protojson. T must be a pointer to
// a generated message type.
type ProtoCodec[T proto.Message] struct {
	MarshalOptions   protojson.MarshalOptions
	UnmarshalOptions protojson.UnmarshalOptions
}

func (ProtoCodec[T]) Name() string { return "protojson" }

func (c ProtoCodec[T]) Encode(message T) ([]byte, error) {
	return c.MarshalOptions.Marshal(message)
}

func (c ProtoCodec[T]) Decode(payload []byte) (T, error) {
	out, err := newProtoMessage[T]()
	if err != nil {
		return out, err
	}
	if err := c.UnmarshalOptions.Unmarshal(payload, out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// newProtoMessage allocates a fresh T.
func newProtoMessage[T proto.Message]() (T, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return zero, fmt.Errorf("chanflow: proto codec needs a pointer message type, got %v", typ)
	}
	typed, ok := reflect.New(typ.Elem()).Interface().(T)
	if !ok {
		return zero, fmt.Errorf("chanflow: unexpected proto message type %s", typ)
	}
	return typed, nil
}
