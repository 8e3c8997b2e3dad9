// Package transport defines the pluggable in-process pub/sub used by chanflow
// mailboxes. Backends live in sub-packages and register themselves with a
// Registry; "channel" (Go channels) is the built-in one.
package transport

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

var (
	ErrConfigRequired   = errors.New("chanflow: transport config is required")
	ErrUnknownTransport = errors.New("chanflow: unknown transport")
	ErrBuilderRequired  = errors.New("chanflow: transport builder is required")
)

// Transport is the publisher and subscriber pair a mailbox runs on.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes the publisher and, when it is a different value, the
// subscriber.
func (t Transport) Close() error {
	var errs []error
	if t.Publisher != nil {
		errs = append(errs, t.Publisher.Close())
	}
	if t.Subscriber != nil && any(t.Subscriber) != any(t.Publisher) {
		errs = append(errs, t.Subscriber.Close())
	}
	return errors.Join(errs...)
}

// Builder creates a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config is the part of the network configuration a backend needs.
type Config interface {
	// GetMailboxTransport returns the backend name to build.
	GetMailboxTransport() string
	// GetMailboxBufferSize returns the per-subscriber buffer size.
	GetMailboxBufferSize() int64
}
