// Package metadata holds the headers a mailbox attaches to each message it
// carries between goroutines.
package metadata

import (
	"maps"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Header keys set by mailboxes.
const (
	KeyMessageType = "chanflow_message_type"
	KeyChannelID   = "chanflow_channel_id"
	KeyCodec       = "chanflow_codec"
)

// Metadata is the header set of one mailbox message. Methods never mutate the
// receiver.
type Metadata map[string]string

// New builds Metadata from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// Clone returns a shallow copy. The copy of a nil Metadata is empty, not nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// With returns a copy with key set to value.
func (m Metadata) With(key, value string) Metadata {
	out := m.Clone()
	out[key] = value
	return out
}

// WithAll returns a copy overlaid with entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	out := m.Clone()
	maps.Copy(out, entries)
	return out
}

func (m Metadata) MessageType() string { return m[KeyMessageType] }
func (m Metadata) ChannelID() string   { return m[KeyChannelID] }
func (m Metadata) Codec() string       { return m[KeyCodec] }

// FromWatermill copies the headers of a Watermill message.
func FromWatermill(md message.Metadata) Metadata {
	return Metadata(md).Clone()
}

// ToWatermill copies m into a Watermill metadata map.
func ToWatermill(m Metadata) message.Metadata {
	return message.Metadata(m.Clone())
}
