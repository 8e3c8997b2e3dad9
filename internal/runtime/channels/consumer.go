package channels

import idspkg "github.com/drblury/chanflow/internal/runtime/ids"

// Consumer processes a delivered message. A returned error is a consumer
// fault and travels back to whoever called Send.
type Consumer[T any] func(message T) error

// ConsumerChannel delivers every message to a Consumer.
type ConsumerChannel[T any] struct {
	id       string
	name     string
	consumer Consumer[T]
}

// NewConsumerChannel wraps consumer in a channel. It panics on a nil
// consumer; configurators reject that case before building anything.
func NewConsumerChannel[T any](consumer Consumer[T]) *ConsumerChannel[T] {
	return NewNamedConsumerChannel("", consumer)
}

// NewNamedConsumerChannel is NewConsumerChannel with a label shown in
// topology descriptions.
func NewNamedConsumerChannel[T any](name string, consumer Consumer[T]) *ConsumerChannel[T] {
	if consumer == nil {
		panic("chanflow: consumer cannot be nil")
	}
	return &ConsumerChannel[T]{
		id:       idspkg.CreateULID(),
		name:     name,
		consumer: consumer,
	}
}

// Send hands message to the consumer.
func (c *ConsumerChannel[T]) Send(message T) error {
	return c.consumer(message)
}

// NodeInfo implements Inspectable.
func (c *ConsumerChannel[T]) NodeInfo() NodeInfo {
	return NodeInfo{ID: c.id, Kind: KindConsumer, Name: c.name, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (c *ConsumerChannel[T]) Children() []any { return nil }
