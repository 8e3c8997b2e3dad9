// Package mailbox moves channel messages across a goroutine boundary. A
// mailbox channel encodes each message, publishes it on an in-process
// Watermill pub/sub and lets a router handler decode it and forward it to the
// real consumer, so senders return before the consumer runs.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
	idspkg "github.com/drblury/chanflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
	transportpkg "github.com/drblury/chanflow/internal/runtime/transport"
	backendpkg "github.com/drblury/chanflow/transport"
)

// TopicPrefix is prepended to generated mailbox topics.
const TopicPrefix = "chanflow.mailbox"

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// Dependencies holds the optional collaborators of a Mailbox.
type Dependencies struct {
	TransportFactory          transportpkg.Factory
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	// Registerer receives the router metrics when metrics are enabled.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// HandleSignals closes the mailbox on SIGINT/SIGTERM.
	HandleSignals bool
}

// Mailbox owns the pub/sub and router shared by all channels attached to it.
type Mailbox struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	pubsub     transportpkg.Transport
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	registerer prometheus.Registerer

	mu           sync.Mutex
	runCtx       context.Context
	ready        chan struct{}
	started      bool
	closed       bool
	topics       map[string]struct{}
	pendingStops []*message.Handler
}

// New constructs a Mailbox and panics when the configuration or transport is
// unusable. Use TryNew to handle those errors.
func New(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps Dependencies) *Mailbox {
	mb, err := TryNew(ctx, conf, log, deps)
	if err != nil {
		panic(err)
	}
	return mb
}

// TryNew constructs a Mailbox. Attach channels before or after calling Run;
// sends are accepted once the mailbox is running.
func TryNew(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps Dependencies) (*Mailbox, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.ConfigValidationError{Err: err}
	}

	log = loggingpkg.Component(log, "mailbox")
	wmLogger := loggingpkg.NewWatermillAdapter(log)

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("chanflow: build mailbox transport: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, errors.Join(err, transport.Close())
	}
	if deps.HandleSignals {
		router.AddPlugin(plugin.SignalsHandler)
	}

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	mb := &Mailbox{
		Conf:       conf,
		Logger:     log,
		pubsub:     transport,
		publisher:  transport.Publisher,
		subscriber: transport.Subscriber,
		router:     router,
		registerer: registerer,
		ready:      make(chan struct{}),
		topics:     make(map[string]struct{}),
	}

	if err := mb.registerConfiguredMiddlewares(deps); err != nil {
		return nil, errors.Join(err, transport.Close())
	}

	// The router shuts itself down once its last handler stops. This handler
	// never stops, so detaching every channel leaves the mailbox usable.
	router.AddNoPublisherHandler(
		"chanflow_mailbox_keepalive",
		idspkg.Topic(TopicPrefix+".keepalive"),
		mb.subscriber,
		func(msg *message.Message) error { return nil },
	)

	caps := mb.Capabilities()
	log.Info("Created mailbox", loggingpkg.LogFields{
		"transport":   conf.GetMailboxTransport(),
		"buffer_size": conf.GetMailboxBufferSize(),
		"in_process":  caps.InProcess,
		"redelivers":  caps.Redelivers,
	})
	return mb, nil
}

// Run processes mailbox messages until ctx is cancelled or Close is called.
// A mailbox runs once; it is closed when Run returns.
func (mb *Mailbox) Run(ctx context.Context) error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return errspkg.ErrMailboxClosed
	}
	if mb.runCtx != nil {
		mb.mu.Unlock()
		return fmt.Errorf("chanflow: mailbox is already running")
	}
	mb.runCtx = ctx
	mb.mu.Unlock()

	go mb.startWhenRouterRuns(ctx)

	mb.Logger.Info("Starting mailbox", nil)
	err := routerRun(mb.router, ctx)
	if closeErr := mb.Close(); err == nil {
		err = closeErr
	}
	return err
}

// startWhenRouterRuns starts the handlers attached while the router was
// booting and then opens the mailbox for sends.
func (mb *Mailbox) startWhenRouterRuns(ctx context.Context) {
	select {
	case <-mb.router.Running():
	case <-ctx.Done():
		return
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return
	}
	if err := mb.router.RunHandlers(ctx); err != nil {
		mb.Logger.Error("Failed to start mailbox handlers", err, nil)
		return
	}
	for _, h := range mb.pendingStops {
		h.Stop()
	}
	mb.pendingStops = nil
	mb.started = true
	close(mb.ready)
}

// Running is closed once the mailbox accepts sends.
func (mb *Mailbox) Running() <-chan struct{} {
	return mb.ready
}

// IsRunning reports whether the mailbox accepts sends.
func (mb *Mailbox) IsRunning() bool {
	select {
	case <-mb.ready:
		return !mb.isClosed()
	default:
		return false
	}
}

// Close stops every handler and releases the pub/sub.
func (mb *Mailbox) Close() error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return nil
	}
	mb.closed = true
	mb.mu.Unlock()

	mb.Logger.Info("Closing mailbox", nil)
	return errors.Join(mb.router.Close(), mb.pubsub.Close())
}

// Capabilities reports what the configured backend guarantees. Mailboxes
// built from a custom TransportFactory report the registered backend of the
// same name, if any.
func (mb *Mailbox) Capabilities() backendpkg.Capabilities {
	return transportpkg.CapabilitiesOf(mb.Conf)
}

// Topics returns the topics of the currently attached channels.
func (mb *Mailbox) Topics() []string {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	topics := make([]string, 0, len(mb.topics))
	for topic := range mb.topics {
		topics = append(topics, topic)
	}
	return topics
}

func (mb *Mailbox) isClosed() bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.closed
}

func (mb *Mailbox) publish(topic string, msg *message.Message) error {
	if !mb.IsRunning() {
		if mb.isClosed() {
			return errspkg.ErrMailboxClosed
		}
		return errspkg.ErrMailboxNotRunning
	}
	return mb.publisher.Publish(topic, msg)
}

// addHandler registers handler for topic and starts it right away when the
// mailbox is already running.
func (mb *Mailbox) addHandler(topic string, handler message.NoPublishHandlerFunc) (*message.Handler, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return nil, errspkg.ErrMailboxClosed
	}
	if _, taken := mb.topics[topic]; taken {
		return nil, fmt.Errorf("%w: %s", errspkg.ErrTopicInUse, topic)
	}

	name := topic + "#" + idspkg.CreateULID()
	h := mb.router.AddNoPublisherHandler(name, topic, mb.subscriber, handler)
	if mb.started {
		if err := mb.router.RunHandlers(mb.runCtx); err != nil {
			return nil, err
		}
	}

	mb.topics[topic] = struct{}{}
	mb.Logger.Debug("Attached mailbox channel", loggingpkg.LogFields{loggingpkg.FieldTopic: topic, "handler": name})
	return h, nil
}

// removeHandler stops h and frees topic for reuse.
func (mb *Mailbox) removeHandler(topic string, h *message.Handler) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	delete(mb.topics, topic)
	if mb.closed {
		return
	}
	if mb.started {
		h.Stop()
	} else {
		mb.pendingStops = append(mb.pendingStops, h)
	}
	mb.Logger.Debug("Detached mailbox channel", loggingpkg.LogFields{loggingpkg.FieldTopic: topic})
}

func (mb *Mailbox) registerConfiguredMiddlewares(deps Dependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := mb.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("chanflow: register middleware %s: %w", name, err)
		}
	}
	return nil
}
