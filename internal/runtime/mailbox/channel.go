package mailbox

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
	idspkg "github.com/drblury/chanflow/internal/runtime/ids"
	metadatapkg "github.com/drblury/chanflow/internal/runtime/metadata"
)

// Channel delivers messages to its output on a mailbox goroutine. Send
// returns once the message is published; consumer faults are handled by the
// mailbox middleware chain and never reach the sender.
type Channel[T any] struct {
	id      string
	topic   string
	mailbox *Mailbox
	codec   Codec[T]
	output  channelspkg.Channel[T]
	handler *message.Handler

	stopOnce sync.Once
	stopped  atomic.Bool
}

// Attach creates a mailbox channel forwarding to output. An empty topic gets a
// generated one below TopicPrefix.
func Attach[T any](mb *Mailbox, topic string, codec Codec[T], output channelspkg.Channel[T]) (*Channel[T], error) {
	if mb == nil {
		return nil, errspkg.ErrMailboxRequired
	}
	if codec == nil {
		return nil, errspkg.ErrCodecRequired
	}
	if output == nil {
		return nil, errspkg.ErrConsumerRequired
	}
	if topic == "" {
		topic = idspkg.Topic(TopicPrefix)
	}

	c := &Channel[T]{
		id:      idspkg.CreateULID(),
		topic:   topic,
		mailbox: mb,
		codec:   codec,
		output:  output,
	}

	h, err := mb.addHandler(topic, c.handle)
	if err != nil {
		return nil, err
	}
	c.handler = h
	return c, nil
}

// Send encodes message and publishes it on the channel's topic.
func (c *Channel[T]) Send(msg T) error {
	if c.stopped.Load() {
		return errspkg.ErrChannelStopped
	}

	payload, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}

	wm := message.NewMessage(idspkg.CreateULID(), payload)
	wm.Metadata = metadatapkg.ToWatermill(metadatapkg.New(
		metadatapkg.KeyMessageType, channelspkg.MessageTypeName[T](),
		metadatapkg.KeyChannelID, c.id,
		metadatapkg.KeyCodec, c.codec.Name(),
	))
	return c.mailbox.publish(c.topic, wm)
}

// Stop detaches the channel from its mailbox. Messages still in flight are
// acknowledged without delivery. Stop is idempotent.
func (c *Channel[T]) Stop() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		c.mailbox.removeHandler(c.topic, c.handler)
	})
}

// Topic returns the pub/sub topic carrying this channel's messages.
func (c *Channel[T]) Topic() string { return c.topic }

// Output returns the channel messages are delivered to.
func (c *Channel[T]) Output() channelspkg.Channel[T] { return c.output }

// NodeInfo implements channels.Inspectable.
func (c *Channel[T]) NodeInfo() channelspkg.NodeInfo {
	return channelspkg.NodeInfo{
		ID:          c.id,
		Kind:        channelspkg.KindMailbox,
		Name:        c.topic,
		MessageType: channelspkg.MessageTypeName[T](),
	}
}

// Children implements channels.Inspectable.
func (c *Channel[T]) Children() []any {
	return []any{c.output}
}

func (c *Channel[T]) handle(msg *message.Message) error {
	if c.stopped.Load() {
		return nil
	}
	if codec := metadatapkg.FromWatermill(msg.Metadata).Codec(); codec != "" && codec != c.codec.Name() {
		err := fmt.Errorf("payload encoded with %q, channel decodes %q", codec, c.codec.Name())
		return &errspkg.UndeliverableMessageError{Topic: c.topic, Payload: string(msg.Payload), Err: err}
	}
	value, err := c.codec.Decode(msg.Payload)
	if err != nil {
		return &errspkg.UndeliverableMessageError{Topic: c.topic, Payload: string(msg.Payload), Err: err}
	}
	return c.output.Send(value)
}
