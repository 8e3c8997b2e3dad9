package channels

import idspkg "github.com/drblury/chanflow/internal/runtime/ids"

// ChannelAdapter is a mutable segment in a channel network. Its output can be
// replaced while other goroutines keep sending through it, which is how a new
// downstream network is installed when consumers attach or detach.
//
// The zero value is ready to use and discards everything.
type ChannelAdapter[T any] struct {
	id     string
	shunt  *ShuntChannel[T]
	output outputSlot[Channel[T]]
}

// NewChannelAdapter returns an adapter whose output is a shunt.
func NewChannelAdapter[T any]() *ChannelAdapter[T] {
	return NewChannelAdapterWithOutput[T](nil)
}

// NewChannelAdapterWithOutput returns an adapter forwarding to output. A nil
// output is replaced by a shunt.
func NewChannelAdapterWithOutput[T any](output Channel[T]) *ChannelAdapter[T] {
	a := &ChannelAdapter[T]{
		id:    idspkg.CreateULID(),
		shunt: &ShuntChannel[T]{},
	}
	a.output.init(a.orShunt(output))
	return a
}

// NewObservedChannelAdapter returns an adapter whose shunt reports every
// discarded message to onDiscard.
func NewObservedChannelAdapter[T any](onDiscard func()) *ChannelAdapter[T] {
	a := &ChannelAdapter[T]{
		id:    idspkg.CreateULID(),
		shunt: NewShuntChannel[T](onDiscard),
	}
	a.output.init(a.shunt)
	return a
}

// ID returns the adapter's node identifier.
func (a *ChannelAdapter[T]) ID() string { return a.id }

// Output returns the currently installed output channel. It is never nil.
func (a *ChannelAdapter[T]) Output() Channel[T] {
	return a.orShunt(a.output.load())
}

// Shunt returns the sink this adapter falls back to when nothing is wired.
func (a *ChannelAdapter[T]) Shunt() Channel[T] {
	return a.orShunt(nil)
}

// Send forwards message to the current output. Whatever error the output
// returns is passed through unchanged.
func (a *ChannelAdapter[T]) Send(message T) error {
	return a.Output().Send(message)
}

// ChangeOutputChannel atomically replaces the output with mutator(current).
// When another writer wins the race the mutator is called again with the
// value that won, so it must be free of side effects. A nil result installs
// the adapter's shunt.
func (a *ChannelAdapter[T]) ChangeOutputChannel(mutator func(Channel[T]) Channel[T]) {
	a.output.change(func(current Channel[T]) Channel[T] {
		return a.orShunt(mutator(a.orShunt(current)))
	})
}

// Stats reports how many swaps succeeded and how many races were lost.
func (a *ChannelAdapter[T]) Stats() SwapStats {
	return a.output.stats()
}

// NodeInfo implements Inspectable.
func (a *ChannelAdapter[T]) NodeInfo() NodeInfo {
	return NodeInfo{ID: a.id, Kind: KindAdapter, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (a *ChannelAdapter[T]) Children() []any {
	return []any{a.Output()}
}

func (a *ChannelAdapter[T]) orShunt(ch Channel[T]) Channel[T] {
	if ch != nil {
		return ch
	}
	if a.shunt != nil {
		return a.shunt
	}
	return &ShuntChannel[T]{}
}
