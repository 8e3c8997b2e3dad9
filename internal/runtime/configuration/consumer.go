package configuration

import (
	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
	mailboxpkg "github.com/drblury/chanflow/internal/runtime/mailbox"
)

// ConsumerConfigurator is the leaf of a configurator tree. It holds the
// consumer and the decorations wrapped around it when the tree is applied.
// Its option methods return the receiver so they can be chained.
type ConsumerConfigurator[T any] struct {
	consumer channelspkg.Consumer[T]
	name     string

	filters   []func(T) bool
	hooks     channelspkg.DeliveryHooks
	spanNames []string

	mailbox    *mailboxpkg.Mailbox
	codec      mailboxpkg.Codec[T]
	useMailbox bool

	errs []error
}

// NewConsumerConfigurator returns a leaf delivering to consumer. A nil consumer
// is reported when the tree is applied.
func NewConsumerConfigurator[T any](consumer channelspkg.Consumer[T]) *ConsumerConfigurator[T] {
	return &ConsumerConfigurator[T]{consumer: consumer}
}

// Named labels the consumer in topology descriptions, hooks and metrics.
func (c *ConsumerConfigurator[T]) Named(name string) *ConsumerConfigurator[T] {
	c.name = name
	return c
}

// Where only lets messages accepted by filter reach the consumer. Several
// filters must all accept.
func (c *ConsumerConfigurator[T]) Where(filter func(T) bool) *ConsumerConfigurator[T] {
	if filter == nil {
		c.errs = append(c.errs, errspkg.ErrFilterRequired)
		return c
	}
	c.filters = append(c.filters, filter)
	return c
}

// WithHooks runs hooks around every delivery. Repeated calls merge.
func (c *ConsumerConfigurator[T]) WithHooks(hooks channelspkg.DeliveryHooks) *ConsumerConfigurator[T] {
	c.hooks = c.hooks.Merge(hooks)
	return c
}

// Instrumented reports every delivery outcome to observer.
func (c *ConsumerConfigurator[T]) Instrumented(observer channelspkg.DeliveryObserver) *ConsumerConfigurator[T] {
	if observer == nil {
		return c
	}
	return c.WithHooks(channelspkg.ObserverHooks(observer))
}

// Traced wraps every delivery in an OpenTelemetry span named spanName.
func (c *ConsumerConfigurator[T]) Traced(spanName string) *ConsumerConfigurator[T] {
	c.spanNames = append(c.spanNames, spanName)
	return c
}

// HandleOnMailbox moves delivery onto mb: senders return once the message is
// queued and the consumer runs on the mailbox's goroutines. Consumer faults
// are then retried and dropped by the mailbox instead of reaching the sender.
func (c *ConsumerConfigurator[T]) HandleOnMailbox(mb *mailboxpkg.Mailbox, codec mailboxpkg.Codec[T]) *ConsumerConfigurator[T] {
	c.mailbox = mb
	c.codec = codec
	c.useMailbox = true
	return c
}

func (c *ConsumerConfigurator[T]) validate(path string) []error {
	var errs []error
	wrap := func(err error) {
		errs = append(errs, errspkg.ConfigurationError{Path: path, Err: err})
	}
	if c.consumer == nil {
		wrap(errspkg.ErrConsumerRequired)
	}
	for _, err := range c.errs {
		wrap(err)
	}
	for _, span := range c.spanNames {
		if span == "" {
			wrap(errspkg.ErrSpanNameRequired)
		}
	}
	if c.useMailbox {
		if c.mailbox == nil {
			wrap(errspkg.ErrMailboxRequired)
		}
		if c.codec == nil {
			wrap(errspkg.ErrCodecRequired)
		}
	}
	return errs
}

// build assembles, from the inside out: consumer, hooks, tracing, mailbox,
// filters. Filters sit outermost so rejected messages are never encoded.
// The returned stop funcs release what build acquired.
func (c *ConsumerConfigurator[T]) build() (channelspkg.Channel[T], []func(), error) {
	var (
		out   channelspkg.Channel[T] = channelspkg.NewNamedConsumerChannel(c.name, c.consumer)
		stops []func()
	)

	if !c.hooks.IsZero() {
		out = channelspkg.NewHookedChannel(c.name, out, c.hooks)
	}
	for _, span := range c.spanNames {
		out = newTracedChannel(span, c.name, out)
	}
	if c.useMailbox {
		boxed, err := mailboxpkg.Attach(c.mailbox, "", c.codec, out)
		if err != nil {
			return nil, nil, err
		}
		stops = append(stops, boxed.Stop)
		out = boxed
	}
	for _, filter := range c.filters {
		out = channelspkg.NewFilterChannel(out, filter)
	}
	return out, stops, nil
}
