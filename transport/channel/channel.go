// Package channel provides the Go channel backend of chanflow mailboxes.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/chanflow/transport"
)

// Name is the registered backend name and the default mailbox transport.
const Name = "channel"

func init() {
	if err := transport.Register(Name, Build, transport.ChannelCapabilities); err != nil {
		panic(err)
	}
}

// Build returns one gochannel pub/sub serving as both publisher and
// subscriber. The configured buffer size becomes the per-subscriber output
// buffer. Acks are not awaited on publish so a sender never blocks on a
// slow mailbox consumer.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            cfg.GetMailboxBufferSize(),
		BlockPublishUntilSubscriberAck: false,
	}, logger)
	return transport.Transport{Publisher: pubSub, Subscriber: pubSub}, nil
}
