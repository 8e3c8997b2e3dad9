package channels

import idspkg "github.com/drblury/chanflow/internal/runtime/ids"

// Matcher is implemented by untyped channels that take only some messages.
// UntypedChannelAdapter sends a message no installed Matcher takes to its
// shunt, where it is counted as a discard.
type Matcher interface {
	Matches(message any) bool
}

// TypedChannel bridges an untyped network to a typed channel: messages whose
// dynamic type is T are forwarded, everything else is ignored.
type TypedChannel[T any] struct {
	id     string
	output Channel[T]
}

// NewTypedChannel returns an UntypedChannel feeding output.
func NewTypedChannel[T any](output Channel[T]) *TypedChannel[T] {
	if output == nil {
		panic("chanflow: typed channel requires an output")
	}
	return &TypedChannel[T]{id: idspkg.CreateULID(), output: output}
}

// Send forwards message when it holds a T. Other messages are skipped so that
// sibling branches of a broadcast can take them.
func (c *TypedChannel[T]) Send(message any) error {
	typed, ok := message.(T)
	if !ok {
		return nil
	}
	return c.output.Send(typed)
}

// Matches implements Matcher.
func (c *TypedChannel[T]) Matches(message any) bool {
	_, ok := message.(T)
	return ok
}

// NodeInfo implements Inspectable.
func (c *TypedChannel[T]) NodeInfo() NodeInfo {
	return NodeInfo{ID: c.id, Kind: KindTyped, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (c *TypedChannel[T]) Children() []any { return []any{c.output} }

// ForwardChannel feeds typed messages into an untyped channel, which lets a
// typed adapter publish into an untyped part of the network.
type ForwardChannel[T any] struct {
	id     string
	output UntypedChannel
}

// NewForwardChannel returns a Channel[T] that sends into output.
func NewForwardChannel[T any](output UntypedChannel) *ForwardChannel[T] {
	if output == nil {
		panic("chanflow: forward channel requires an output")
	}
	return &ForwardChannel[T]{id: idspkg.CreateULID(), output: output}
}

// Send passes message on to the untyped output.
func (c *ForwardChannel[T]) Send(message T) error {
	return c.output.Send(message)
}

// NodeInfo implements Inspectable.
func (c *ForwardChannel[T]) NodeInfo() NodeInfo {
	return NodeInfo{ID: c.id, Kind: KindForward, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (c *ForwardChannel[T]) Children() []any { return []any{c.output} }
