package channels

import (
	"errors"

	idspkg "github.com/drblury/chanflow/internal/runtime/ids"
)

// BroadcastChannel delivers each message to every listener. It is immutable:
// With and Without return new broadcasts, which is what mutators passed to
// ChangeOutputChannel need.
type BroadcastChannel[T any] struct {
	id        string
	listeners []Channel[T]
}

// NewBroadcastChannel returns a broadcast over a copy of listeners.
func NewBroadcastChannel[T any](listeners ...Channel[T]) *BroadcastChannel[T] {
	cloned := make([]Channel[T], 0, len(listeners))
	for _, l := range listeners {
		if l != nil {
			cloned = append(cloned, l)
		}
	}
	return &BroadcastChannel[T]{id: idspkg.CreateULID(), listeners: cloned}
}

// Send delivers message to all listeners, in order. A failing listener does
// not stop delivery to the rest; all faults are joined into the result.
func (b *BroadcastChannel[T]) Send(message T) error {
	var errs []error
	for _, l := range b.listeners {
		if err := l.Send(message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Matches implements Matcher: it reports whether any listener takes message.
// A listener that is not a Matcher takes everything.
func (b *BroadcastChannel[T]) Matches(message any) bool {
	for _, l := range b.listeners {
		m, ok := any(l).(Matcher)
		if !ok || m.Matches(message) {
			return true
		}
	}
	return false
}

// Listeners returns a copy of the listener list.
func (b *BroadcastChannel[T]) Listeners() []Channel[T] {
	cloned := make([]Channel[T], len(b.listeners))
	copy(cloned, b.listeners)
	return cloned
}

// Len returns the number of listeners.
func (b *BroadcastChannel[T]) Len() int { return len(b.listeners) }

// With returns a broadcast that also delivers to ch.
func (b *BroadcastChannel[T]) With(ch Channel[T]) *BroadcastChannel[T] {
	return NewBroadcastChannel(append(b.Listeners(), ch)...)
}

// Without returns a broadcast lacking ch and whether ch was present.
func (b *BroadcastChannel[T]) Without(ch Channel[T]) (*BroadcastChannel[T], bool) {
	kept := make([]Channel[T], 0, len(b.listeners))
	found := false
	for _, l := range b.listeners {
		if !found && sameChannel(l, ch) {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return b, false
	}
	return NewBroadcastChannel(kept...), true
}

// Contains reports whether ch is one of the listeners.
func (b *BroadcastChannel[T]) Contains(ch Channel[T]) bool {
	for _, l := range b.listeners {
		if sameChannel(l, ch) {
			return true
		}
	}
	return false
}

// NodeInfo implements Inspectable.
func (b *BroadcastChannel[T]) NodeInfo() NodeInfo {
	return NodeInfo{ID: b.id, Kind: KindBroadcast, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (b *BroadcastChannel[T]) Children() []any {
	children := make([]any, len(b.listeners))
	for i, l := range b.listeners {
		children[i] = l
	}
	return children
}
