package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec[order]{}
	assert.Equal(t, "json", codec.Name())

	payload, err := codec.Encode(order{ID: "o-1", Total: 12})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"o-1","total":12}`, string(payload))

	decoded, err := codec.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, order{ID: "o-1", Total: 12}, decoded)

	_, err = codec.Decode([]byte("{"))
	assert.Error(t, err)
}

func TestProtoCodec(t *testing.T) {
	codec := ProtoCodec[*wrapperspb.StringValue]{}
	assert.Equal(t, "protojson", codec.Name())

	payload, err := codec.Encode(wrapperspb.String("hello"))
	require.NoError(t, err)

	decoded, err := codec.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded.GetValue())

	again, err := codec.Decode(payload)
	require.NoError(t, err)
	assert.NotSame(t, decoded, again)

	_, err = codec.Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestNewProtoMessage_RejectsInterfaceType(t *testing.T) {
	_, err := newProtoMessage[proto.Message]()
	assert.Error(t, err)

	msg, err := newProtoMessage[*wrapperspb.Int64Value]()
	require.NoError(t, err)
	assert.NotNil(t, msg)
}
