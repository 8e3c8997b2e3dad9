package channels

// ShuntChannel discards every message sent to it. The optional observer is
// invoked once per discarded message.
type ShuntChannel[T any] struct {
	onDiscard func()
}

// NewShuntChannel returns a shunt that reports discards to onDiscard. A nil
// observer gives a plain no-op sink.
func NewShuntChannel[T any](onDiscard func()) *ShuntChannel[T] {
	return &ShuntChannel[T]{onDiscard: onDiscard}
}

// Send discards message. It never fails.
func (s *ShuntChannel[T]) Send(T) error {
	if s != nil && s.onDiscard != nil {
		s.onDiscard()
	}
	return nil
}

func (s *ShuntChannel[T]) isShunt() {}

// NodeInfo implements Inspectable.
func (s *ShuntChannel[T]) NodeInfo() NodeInfo {
	return NodeInfo{Kind: KindShunt, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (s *ShuntChannel[T]) Children() []any { return nil }

// UntypedShuntChannel is the untyped counterpart of ShuntChannel.
type UntypedShuntChannel struct {
	onDiscard func()
}

// NewUntypedShuntChannel returns an untyped shunt reporting to onDiscard.
func NewUntypedShuntChannel(onDiscard func()) *UntypedShuntChannel {
	return &UntypedShuntChannel{onDiscard: onDiscard}
}

// Send discards message. It never fails.
func (s *UntypedShuntChannel) Send(any) error {
	if s != nil && s.onDiscard != nil {
		s.onDiscard()
	}
	return nil
}

func (s *UntypedShuntChannel) isShunt() {}

// NodeInfo implements Inspectable.
func (s *UntypedShuntChannel) NodeInfo() NodeInfo {
	return NodeInfo{Kind: KindShunt, MessageType: untypedMessageType}
}

// Children implements Inspectable.
func (s *UntypedShuntChannel) Children() []any { return nil }

type shunt interface {
	isShunt()
}

// IsShunt reports whether ch is a shunt sink.
func IsShunt(ch any) bool {
	_, ok := ch.(shunt)
	return ok
}
