package channels

import idspkg "github.com/drblury/chanflow/internal/runtime/ids"

const untypedMessageType = "any"

// UntypedChannelAdapter is the untyped counterpart of ChannelAdapter: the
// message type is chosen by each Send, so one adapter can route messages of
// many types.
//
// The zero value is ready to use and discards everything.
type UntypedChannelAdapter struct {
	id     string
	shunt  *UntypedShuntChannel
	output outputSlot[UntypedChannel]
}

// NewUntypedChannelAdapter returns an adapter whose output is a shunt.
func NewUntypedChannelAdapter() *UntypedChannelAdapter {
	return NewUntypedChannelAdapterWithOutput(nil)
}

// NewUntypedChannelAdapterWithOutput returns an adapter forwarding to output.
func NewUntypedChannelAdapterWithOutput(output UntypedChannel) *UntypedChannelAdapter {
	a := &UntypedChannelAdapter{
		id:    idspkg.CreateULID(),
		shunt: &UntypedShuntChannel{},
	}
	a.output.init(a.orShunt(output))
	return a
}

// NewObservedUntypedChannelAdapter returns an adapter whose shunt reports
// every discarded message to onDiscard.
func NewObservedUntypedChannelAdapter(onDiscard func()) *UntypedChannelAdapter {
	a := &UntypedChannelAdapter{
		id:    idspkg.CreateULID(),
		shunt: NewUntypedShuntChannel(onDiscard),
	}
	a.output.init(a.shunt)
	return a
}

// ID returns the adapter's node identifier.
func (a *UntypedChannelAdapter) ID() string { return a.id }

// Output returns the currently installed output channel. It is never nil.
func (a *UntypedChannelAdapter) Output() UntypedChannel {
	return a.orShunt(a.output.load())
}

// Shunt returns the sink this adapter falls back to when nothing is wired.
func (a *UntypedChannelAdapter) Shunt() UntypedChannel {
	return a.orShunt(nil)
}

// Send forwards message to the current output. When the output is a Matcher
// that takes no part of message, the message goes to the shunt instead.
func (a *UntypedChannelAdapter) Send(message any) error {
	out := a.Output()
	if m, ok := out.(Matcher); ok && !m.Matches(message) {
		return a.Shunt().Send(message)
	}
	return out.Send(message)
}

// ChangeOutputChannel atomically replaces the output with mutator(current),
// retrying against the winning value whenever a concurrent writer gets there
// first. A nil result installs the adapter's shunt.
func (a *UntypedChannelAdapter) ChangeOutputChannel(mutator func(UntypedChannel) UntypedChannel) {
	a.output.change(func(current UntypedChannel) UntypedChannel {
		return a.orShunt(mutator(a.orShunt(current)))
	})
}

// Stats reports how many swaps succeeded and how many races were lost.
func (a *UntypedChannelAdapter) Stats() SwapStats {
	return a.output.stats()
}

// NodeInfo implements Inspectable.
func (a *UntypedChannelAdapter) NodeInfo() NodeInfo {
	return NodeInfo{ID: a.id, Kind: KindUntypedAdapter, MessageType: untypedMessageType}
}

// Children implements Inspectable.
func (a *UntypedChannelAdapter) Children() []any {
	return []any{a.Output()}
}

func (a *UntypedChannelAdapter) orShunt(ch UntypedChannel) UntypedChannel {
	if ch != nil {
		return ch
	}
	if a.shunt != nil {
		return a.shunt
	}
	return &UntypedShuntChannel{}
}
