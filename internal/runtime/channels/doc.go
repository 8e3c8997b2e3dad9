/*
Package channels implements the message sinks of a chanflow network and the
lock-free indirection cells used to rewire them at runtime.

# Capabilities

Channel[T] accepts messages of one type; UntypedChannel accepts any message and
leaves the type to the call site (see Send). Neither knows anything about the
topology it sits in.

# Adapters

ChannelAdapter[T] and UntypedChannelAdapter hold exactly one output channel.
The output starts as a shunt, so sending through an unwired adapter is always
legal and simply discards. ChangeOutputChannel replaces the output with a
compare-and-retry loop:

	adapter.ChangeOutputChannel(func(current channels.Channel[Order]) channels.Channel[Order] {
		return channels.NewConsumerChannel(handleOrder)
	})

The mutator may run several times when writers race, so it must be a pure
function of its input. Installed channels are treated as immutable; changing a
consumer means installing a new channel.

This package never logs and never blocks. Errors returned by Send come from the
downstream consumers only.
*/
package channels
