package configuration

import (
	"sync"
	"sync/atomic"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
)

// Connection is the live result of applying a configurator tree.
type Connection struct {
	detach   func()
	stops    []func()
	channels int

	once     sync.Once
	detached atomic.Bool
}

func newConnection(detach func(), stops []func(), channels int) *Connection {
	return &Connection{detach: detach, stops: stops, channels: channels}
}

// Disconnect removes exactly the channels this connection attached. Outputs
// installed by other connections stay in place; an adapter left without
// outputs falls back to its shunt. Disconnect is idempotent.
func (c *Connection) Disconnect() {
	c.once.Do(func() {
		c.detach()
		runAll(c.stops)
		c.detached.Store(true)
	})
}

// Connected reports whether Disconnect has not run yet.
func (c *Connection) Connected() bool {
	return !c.detached.Load()
}

// Channels returns how many channel configurators were attached.
func (c *Connection) Channels() int {
	return c.channels
}

// fanOut is the broadcast connections compose on an adapter. Broadcasts built
// elsewhere, including those of multi-consumer channel configurators, are
// treated as single outputs so each connection can find its own again.
type fanOut[T any] struct {
	*channelspkg.BroadcastChannel[T]
}

// attachOutputs composes outputs with the adapter's current output. A shunt is
// replaced, a fan-out is extended and any other output is kept alongside the
// new ones. It allocates fresh values only, so it is safe to retry.
func attachOutputs[T any](current channelspkg.Channel[T], outputs []channelspkg.Channel[T]) channelspkg.Channel[T] {
	if len(outputs) == 0 {
		return current
	}
	if current == nil || channelspkg.IsShunt(current) {
		if len(outputs) == 1 {
			return outputs[0]
		}
		return &fanOut[T]{channelspkg.NewBroadcastChannel(outputs...)}
	}
	if existing, ok := current.(*fanOut[T]); ok {
		broadcast := existing.BroadcastChannel
		for _, out := range outputs {
			broadcast = broadcast.With(out)
		}
		return &fanOut[T]{broadcast}
	}
	return &fanOut[T]{channelspkg.NewBroadcastChannel(append([]channelspkg.Channel[T]{current}, outputs...)...)}
}

// detachOutputs removes outputs from current. A nil result means nothing is
// left and the adapter installs its shunt.
func detachOutputs[T any](current channelspkg.Channel[T], outputs []channelspkg.Channel[T]) channelspkg.Channel[T] {
	if existing, ok := current.(*fanOut[T]); ok {
		broadcast := existing.BroadcastChannel
		for _, out := range outputs {
			broadcast, _ = broadcast.Without(out)
		}
		switch broadcast.Len() {
		case 0:
			return nil
		case 1:
			return broadcast.Listeners()[0]
		default:
			return &fanOut[T]{broadcast}
		}
	}
	for _, out := range outputs {
		if any(current) == any(out) {
			return nil
		}
	}
	return current
}
