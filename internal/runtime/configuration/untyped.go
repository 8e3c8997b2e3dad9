package configuration

import (
	"sync"
	"sync/atomic"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
)

// UntypedChannelConfigurator is a branch of an untyped connection. Every
// ChannelConfigurator satisfies it: messages whose dynamic type matches the
// branch's type reach its consumers, other messages skip it.
type UntypedChannelConfigurator interface {
	validate(path string) []error
	buildUntyped() (channelspkg.Channel[any], []func(), error)
	isNilConfigurator() bool
}

// UntypedConnectionConfigurator is the root of a configurator tree for an
// untyped adapter. Its branches may carry different message types.
type UntypedConnectionConfigurator struct {
	mu       sync.Mutex
	branches []UntypedChannelConfigurator
	applied  atomic.Bool
}

// NewUntypedConnectionConfigurator returns an empty untyped connection
// configurator.
func NewUntypedConnectionConfigurator() *UntypedConnectionConfigurator {
	return &UntypedConnectionConfigurator{}
}

// AddConfigurator registers a typed channel configurator below c.
func (c *UntypedConnectionConfigurator) AddConfigurator(child UntypedChannelConfigurator) *UntypedConnectionConfigurator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.branches = append(c.branches, child)
	return c
}

// Validate checks the whole tree without building anything.
func (c *UntypedConnectionConfigurator) Validate() error {
	return validateTree(validators(c.children()))
}

// Apply validates the tree and attaches the built branches to adapter. It
// follows the same rules as ConnectionConfigurator.Apply.
func (c *UntypedConnectionConfigurator) Apply(adapter *channelspkg.UntypedChannelAdapter) (*Connection, error) {
	if adapter == nil {
		return nil, errspkg.ConfigurationError{Path: rootPath, Err: errspkg.ErrAdapterRequired}
	}
	if !c.applied.CompareAndSwap(false, true) {
		return nil, errspkg.ConfigurationError{Path: rootPath, Err: errspkg.ErrAlreadyApplied}
	}

	children := c.children()
	if err := validateTree(validators(children)); err != nil {
		c.applied.Store(false)
		return nil, err
	}

	outputs := make([]channelspkg.Channel[any], 0, len(children))
	var stops []func()
	for _, child := range children {
		out, childStops, err := child.buildUntyped()
		stops = append(stops, childStops...)
		if err != nil {
			runAll(stops)
			c.applied.Store(false)
			return nil, err
		}
		outputs = append(outputs, out)
	}

	adapter.ChangeOutputChannel(func(current channelspkg.UntypedChannel) channelspkg.UntypedChannel {
		return attachOutputs[any](current, outputs)
	})

	return newConnection(func() {
		adapter.ChangeOutputChannel(func(current channelspkg.UntypedChannel) channelspkg.UntypedChannel {
			return detachOutputs[any](current, outputs)
		})
	}, stops, len(outputs)), nil
}

func (c *UntypedConnectionConfigurator) children() []UntypedChannelConfigurator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]UntypedChannelConfigurator(nil), c.branches...)
}

// AddConsumerOf declares that messages of type T on cfg reach consumer. A
// message no branch of the adapter takes is discarded by its shunt and
// counted like any other discard.
func AddConsumerOf[T any](cfg *UntypedConnectionConfigurator, consumer channelspkg.Consumer[T]) *ConsumerConfigurator[T] {
	if cfg == nil {
		panic("chanflow: connection configurator cannot be nil")
	}
	channel := NewChannelConfigurator[T]()
	cfg.AddConfigurator(channel)
	return UsingConsumer(channel, consumer)
}
