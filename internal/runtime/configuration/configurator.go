// Package configuration declares how consumers attach to channel adapters.
//
// A configurator tree has three levels: a connection configurator for one
// adapter, channel configurators below it and consumer configurators as
// leaves. The tree only records intent. Apply validates the whole tree, builds
// the channels and installs them on the adapter with a single
// ChangeOutputChannel call.
package configuration

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
)

// ChannelConfigurator groups the consumers of one channel. With several
// consumers every message reaches each of them.
type ChannelConfigurator[T any] struct {
	mu        sync.Mutex
	consumers []*ConsumerConfigurator[T]
}

// NewChannelConfigurator returns an empty channel configurator.
func NewChannelConfigurator[T any]() *ChannelConfigurator[T] {
	return &ChannelConfigurator[T]{}
}

// AddConfigurator registers a consumer configurator below c.
func (c *ChannelConfigurator[T]) AddConfigurator(child *ConsumerConfigurator[T]) *ChannelConfigurator[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, child)
	return c
}

func (c *ChannelConfigurator[T]) isNilConfigurator() bool { return c == nil }

func (c *ChannelConfigurator[T]) children() []*ConsumerConfigurator[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ConsumerConfigurator[T](nil), c.consumers...)
}

func (c *ChannelConfigurator[T]) validate(path string) []error {
	consumers := c.children()
	if len(consumers) == 0 {
		return []error{errspkg.ConfigurationError{Path: path, Err: errspkg.ErrNoConsumers}}
	}
	var errs []error
	for i, consumer := range consumers {
		childPath := fmt.Sprintf("%s/consumer[%d]", path, i)
		if consumer == nil {
			errs = append(errs, errspkg.ConfigurationError{Path: childPath, Err: errspkg.ErrConfiguratorNil})
			continue
		}
		errs = append(errs, consumer.validate(childPath)...)
	}
	return errs
}

func (c *ChannelConfigurator[T]) build() (channelspkg.Channel[T], []func(), error) {
	consumers := c.children()
	outputs := make([]channelspkg.Channel[T], 0, len(consumers))
	var stops []func()
	for _, consumer := range consumers {
		out, consumerStops, err := consumer.build()
		stops = append(stops, consumerStops...)
		if err != nil {
			runAll(stops)
			return nil, nil, err
		}
		outputs = append(outputs, out)
	}
	if len(outputs) == 1 {
		return outputs[0], stops, nil
	}
	return channelspkg.NewBroadcastChannel(outputs...), stops, nil
}

// buildUntyped lets a typed branch join an untyped connection.
func (c *ChannelConfigurator[T]) buildUntyped() (channelspkg.Channel[any], []func(), error) {
	out, stops, err := c.build()
	if err != nil {
		return nil, nil, err
	}
	return channelspkg.NewTypedChannel(out), stops, nil
}

// ConnectionConfigurator is the root of a configurator tree for one typed
// adapter.
type ConnectionConfigurator[T any] struct {
	mu       sync.Mutex
	channels []*ChannelConfigurator[T]
	applied  atomic.Bool
}

// NewConnectionConfigurator returns an empty connection configurator.
func NewConnectionConfigurator[T any]() *ConnectionConfigurator[T] {
	return &ConnectionConfigurator[T]{}
}

// AddConfigurator registers a channel configurator below c.
func (c *ConnectionConfigurator[T]) AddConfigurator(child *ChannelConfigurator[T]) *ConnectionConfigurator[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = append(c.channels, child)
	return c
}

// Validate checks the whole tree without building anything. All problems are
// returned joined, each as a ConfigurationError naming its position.
func (c *ConnectionConfigurator[T]) Validate() error {
	return validateTree(validators(c.children()))
}

// Apply validates the tree and, when it is sound, attaches the built channels
// to adapter. On error nothing is installed. A configurator can be applied
// successfully only once.
func (c *ConnectionConfigurator[T]) Apply(adapter *channelspkg.ChannelAdapter[T]) (*Connection, error) {
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

	outputs := make([]channelspkg.Channel[T], 0, len(children))
	var stops []func()
	for _, child := range children {
		out, childStops, err := child.build()
		stops = append(stops, childStops...)
		if err != nil {
			runAll(stops)
			c.applied.Store(false)
			return nil, err
		}
		outputs = append(outputs, out)
	}

	adapter.ChangeOutputChannel(func(current channelspkg.Channel[T]) channelspkg.Channel[T] {
		return attachOutputs(current, outputs)
	})

	return newConnection(func() {
		adapter.ChangeOutputChannel(func(current channelspkg.Channel[T]) channelspkg.Channel[T] {
			return detachOutputs(current, outputs)
		})
	}, stops, len(outputs)), nil
}

func (c *ConnectionConfigurator[T]) children() []*ChannelConfigurator[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ChannelConfigurator[T](nil), c.channels...)
}

// AddConsumer declares that messages on conn reach consumer. It registers a new
// channel configurator holding one consumer configurator and returns the
// latter for further options.
func AddConsumer[T any](conn *ConnectionConfigurator[T], consumer channelspkg.Consumer[T]) *ConsumerConfigurator[T] {
	if conn == nil {
		panic("chanflow: connection configurator cannot be nil")
	}
	channel := NewChannelConfigurator[T]()
	conn.AddConfigurator(channel)
	return UsingConsumer(channel, consumer)
}

// UsingConsumer registers a consumer configurator for consumer below channel
// and returns it.
func UsingConsumer[T any](channel *ChannelConfigurator[T], consumer channelspkg.Consumer[T]) *ConsumerConfigurator[T] {
	if channel == nil {
		panic("chanflow: channel configurator cannot be nil")
	}
	cfg := NewConsumerConfigurator(consumer)
	channel.AddConfigurator(cfg)
	return cfg
}

const rootPath = "connection"

type validator interface {
	validate(path string) []error
}

// validators converts children to validators, keeping nil children nil.
func validators[C validator](children []C) []validator {
	out := make([]validator, len(children))
	for i, child := range children {
		if !isNil(child) {
			out[i] = child
		}
	}
	return out
}

func isNil(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case interface{ isNilConfigurator() bool }:
		return typed.isNilConfigurator()
	}
	return false
}

func validateTree(children []validator) error {
	if len(children) == 0 {
		return errspkg.ConfigurationError{Path: rootPath, Err: errspkg.ErrNoChannels}
	}
	var errs []error
	for i, child := range children {
		path := fmt.Sprintf("%s/channel[%d]", rootPath, i)
		if child == nil {
			errs = append(errs, errspkg.ConfigurationError{Path: path, Err: errspkg.ErrConfiguratorNil})
			continue
		}
		errs = append(errs, child.validate(path)...)
	}
	return errors.Join(errs...)
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
