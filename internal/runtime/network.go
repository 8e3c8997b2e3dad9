package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	configurationpkg "github.com/drblury/chanflow/internal/runtime/configuration"
	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
	mailboxpkg "github.com/drblury/chanflow/internal/runtime/mailbox"
)

const httpShutdownTimeout = 5 * time.Second

// NetworkDependencies holds the optional collaborators of a Network.
type NetworkDependencies struct {
	// Mailbox configures the mailbox owned by the network. Its Registerer
	// defaults to the network's.
	Mailbox mailboxpkg.Dependencies
	// Registerer receives the network metrics when metrics are enabled.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Gatherer backs the /metrics endpoint. Defaults to Registerer when it is
	// also a Gatherer, else to prometheus.DefaultGatherer.
	Gatherer        prometheus.Gatherer
	ErrorClassifier ErrorClassifier
}

// Network is a named set of channel adapters plus the runtime around them: a
// mailbox for asynchronous consumers, metrics and the topology API.
type Network struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	mailbox    *mailboxpkg.Mailbox
	metrics    *NetworkMetrics
	gatherer   prometheus.Gatherer
	stats      *consumerStatsRegistry
	resources  *resourceSampler
	classifier ErrorClassifier

	mu          sync.RWMutex
	channels    map[string]*registeredChannel
	connections []networkConnection
	closed      bool
	started     atomic.Bool

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
	servers       []*http.Server
}

type registeredChannel struct {
	name        string
	messageType string
	untyped     bool
	adapter     channelspkg.Inspectable
	stats       func() channelspkg.SwapStats
	discarded   atomic.Uint64
}

type networkConnection struct {
	channel string
	conn    *configurationpkg.Connection
}

// NewNetwork constructs a Network and panics when it cannot be built. Use
// TryNewNetwork to handle those errors.
func NewNetwork(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps NetworkDependencies) *Network {
	n, err := TryNewNetwork(ctx, conf, log, deps)
	if err != nil {
		panic(err)
	}
	return n
}

// TryNewNetwork constructs a Network. Register channels and connect consumers
// before or after calling Start; only mailbox consumers need a started
// network.
func TryNewNetwork(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps NetworkDependencies) (*Network, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.ConfigValidationError{Err: err}
	}

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		if g, ok := registerer.(prometheus.Gatherer); ok {
			gatherer = g
		} else {
			gatherer = prometheus.DefaultGatherer
		}
	}

	mailboxDeps := deps.Mailbox
	if mailboxDeps.Registerer == nil {
		mailboxDeps.Registerer = registerer
	}
	mb, err := mailboxpkg.TryNew(ctx, conf, log.With(loggingpkg.LogFields{loggingpkg.FieldNetwork: conf.NetworkName()}), mailboxDeps)
	if err != nil {
		return nil, err
	}

	n := &Network{
		Conf:       conf,
		Logger:     loggingpkg.Component(log, "network").With(loggingpkg.LogFields{loggingpkg.FieldNetwork: conf.NetworkName()}),
		mailbox:    mb,
		gatherer:   gatherer,
		stats:      newConsumerStatsRegistry(),
		resources:  newResourceSampler(),
		classifier: deps.ErrorClassifier,
		channels:   make(map[string]*registeredChannel),
	}
	if n.classifier == nil {
		n.classifier = defaultErrorClassifier
	}
	n.metrics = NewNetworkMetrics(registerer, conf.NetworkName(), n.adapterStats)

	if conf.MetricsEnabled {
		if err := n.metrics.Register(); err != nil {
			_ = mb.Close()
			return nil, fmt.Errorf("chanflow: register network metrics: %w", err)
		}
	}

	n.Logger.Info("Created network", loggingpkg.LogFields{"config": conf})
	return n, nil
}

// Start serves the configured HTTP endpoints and runs the mailbox until ctx
// is cancelled or the network is closed. A network starts once.
func (n *Network) Start(ctx context.Context) error {
	if n.isClosed() {
		return errspkg.ErrNetworkClosed
	}
	if !n.started.CompareAndSwap(false, true) {
		return errors.New("chanflow: network already started")
	}

	n.registerTopologyAPI()
	n.registerMetricsEndpoint()
	if err := n.startHTTPServers(); err != nil {
		n.stopHTTPServers()
		return err
	}
	defer n.stopHTTPServers()

	n.Logger.Info("Starting network", loggingpkg.LogFields{"channels": n.ChannelNames()})
	return n.mailbox.Run(ctx)
}

// Close disconnects every connection made through the network and releases
// the runtime around it. Its adapter counters are no longer exported. Adapters keep working and fall back to
// their shunts. Close is idempotent.
func (n *Network) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	connections := n.connections
	n.connections = nil
	n.mu.Unlock()

	for _, c := range connections {
		c.conn.Disconnect()
	}
	n.stopHTTPServers()
	n.metrics.Unregister()
	n.Logger.Info("Closed network", loggingpkg.LogFields{"connections": len(connections)})
	return n.mailbox.Close()
}

// Mailbox returns the mailbox consumers use with HandleOnMailbox.
func (n *Network) Mailbox() *mailboxpkg.Mailbox { return n.mailbox }

// Metrics returns the network's Prometheus collectors.
func (n *Network) Metrics() *NetworkMetrics { return n.metrics }

// Observer returns the DeliveryObserver feeding the network's metrics and
// consumer statistics. Pass it to ConsumerConfigurator.Instrumented.
func (n *Network) Observer() channelspkg.DeliveryObserver { return n }

// ObserveDelivery implements channels.DeliveryObserver.
func (n *Network) ObserveDelivery(consumer, messageType string, elapsed time.Duration, err error) {
	n.metrics.ObserveDelivery(consumer, messageType, elapsed, err)
	n.stats.record(consumer, messageType).observe(elapsed, err, n.classifier(err), time.Now())
}

// ConsumerStats returns the statistics of every instrumented consumer.
func (n *Network) ConsumerStats() []ConsumerStats {
	return n.stats.snapshot()
}

// ChannelNames returns the registered channel names in sorted order.
func (n *Network) ChannelNames() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.channels))
	for name := range n.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterChannel creates a typed adapter named name. Messages sent before
// anything is connected are discarded and counted.
func RegisterChannel[T any](n *Network, name string) (*channelspkg.ChannelAdapter[T], error) {
	if n == nil {
		return nil, errspkg.ErrNetworkRequired
	}
	entry := &registeredChannel{name: name, messageType: channelspkg.MessageTypeName[T]()}
	adapter := channelspkg.NewObservedChannelAdapter[T](n.discardRecorder(entry))
	entry.adapter = adapter
	entry.stats = adapter.Stats
	if err := n.register(entry); err != nil {
		return nil, err
	}
	return adapter, nil
}

// RegisterUntypedChannel creates an untyped adapter named name.
func (n *Network) RegisterUntypedChannel(name string) (*channelspkg.UntypedChannelAdapter, error) {
	entry := &registeredChannel{name: name, messageType: "any", untyped: true}
	adapter := channelspkg.NewObservedUntypedChannelAdapter(n.discardRecorder(entry))
	entry.adapter = adapter
	entry.stats = adapter.Stats
	if err := n.register(entry); err != nil {
		return nil, err
	}
	return adapter, nil
}

// LookupChannel returns the typed adapter registered as name.
func LookupChannel[T any](n *Network, name string) (*channelspkg.ChannelAdapter[T], error) {
	if n == nil {
		return nil, errspkg.ErrNetworkRequired
	}
	entry, err := n.lookup(name)
	if err != nil {
		return nil, err
	}
	adapter, ok := entry.adapter.(*channelspkg.ChannelAdapter[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s carries %s, not %s",
			errspkg.ErrChannelTypeMismatch, name, entry.messageType, channelspkg.MessageTypeName[T]())
	}
	return adapter, nil
}

// LookupUntypedChannel returns the untyped adapter registered as name.
func (n *Network) LookupUntypedChannel(name string) (*channelspkg.UntypedChannelAdapter, error) {
	entry, err := n.lookup(name)
	if err != nil {
		return nil, err
	}
	adapter, ok := entry.adapter.(*channelspkg.UntypedChannelAdapter)
	if !ok {
		return nil, fmt.Errorf("%w: %s carries %s, not any", errspkg.ErrChannelTypeMismatch, name, entry.messageType)
	}
	return adapter, nil
}

// Connect applies cfg to the typed channel name. The connection is
// disconnected when the network closes.
func Connect[T any](n *Network, name string, cfg *configurationpkg.ConnectionConfigurator[T]) (*configurationpkg.Connection, error) {
	adapter, err := LookupChannel[T](n, name)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errspkg.ConfigurationError{Err: errspkg.ErrConfiguratorNil}
	}
	return n.track(name, func() (*configurationpkg.Connection, error) {
		return cfg.Apply(adapter)
	})
}

// ConnectUntyped applies cfg to the untyped channel name.
func (n *Network) ConnectUntyped(name string, cfg *configurationpkg.UntypedConnectionConfigurator) (*configurationpkg.Connection, error) {
	adapter, err := n.LookupUntypedChannel(name)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errspkg.ConfigurationError{Err: errspkg.ErrConfiguratorNil}
	}
	return n.track(name, func() (*configurationpkg.Connection, error) {
		return cfg.Apply(adapter)
	})
}

func (n *Network) register(entry *registeredChannel) error {
	if entry.name == "" {
		return errspkg.ErrChannelNameRequired
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return errspkg.ErrNetworkClosed
	}
	if _, exists := n.channels[entry.name]; exists {
		return fmt.Errorf("%w: %s", errspkg.ErrChannelExists, entry.name)
	}
	n.channels[entry.name] = entry

	n.Logger.Debug("Registered channel", loggingpkg.LogFields{
		loggingpkg.FieldChannel:     entry.name,
		loggingpkg.FieldMessageType: entry.messageType,
	})
	return nil
}

func (n *Network) lookup(name string) (*registeredChannel, error) {
	if name == "" {
		return nil, errspkg.ErrChannelNameRequired
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	entry, ok := n.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errspkg.ErrChannelNotFound, name)
	}
	return entry, nil
}

// track applies a configurator and remembers the connection for Close. The
// network lock is not held while applying, so sends and swaps proceed.
func (n *Network) track(channel string, apply func() (*configurationpkg.Connection, error)) (*configurationpkg.Connection, error) {
	if n.isClosed() {
		return nil, errspkg.ErrNetworkClosed
	}
	conn, err := apply()
	if err != nil {
		n.Logger.Error("Failed to connect channel", err, loggingpkg.LogFields{loggingpkg.FieldChannel: channel})
		return nil, err
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		conn.Disconnect()
		return nil, errspkg.ErrNetworkClosed
	}
	n.connections = append(n.connections, networkConnection{channel: channel, conn: conn})
	n.mu.Unlock()

	n.Logger.Info("Connected channel", loggingpkg.LogFields{
		loggingpkg.FieldChannel: channel,
		"branches":              conn.Channels(),
	})
	return conn, nil
}

func (n *Network) discardRecorder(entry *registeredChannel) func() {
	return func() {
		entry.discarded.Add(1)
		n.metrics.RecordDiscard(entry.name)
	}
}

func (n *Network) adapterStats() map[string]channelspkg.SwapStats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]channelspkg.SwapStats, len(n.channels))
	for name, entry := range n.channels {
		out[name] = entry.stats()
	}
	return out
}

func (n *Network) activeConnections(channel string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, c := range n.connections {
		if c.channel == channel && c.conn.Connected() {
			count++
		}
	}
	return count
}

func (n *Network) isClosed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.closed
}

// RegisterHTTPHandler adds handler to the server listening on port. Servers
// are started by Start; handlers for new ports added afterwards are not
// served.
func (n *Network) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	n.httpServersMu.Lock()
	defer n.httpServersMu.Unlock()

	if n.httpServers == nil {
		n.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := n.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		n.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (n *Network) startHTTPServers() error {
	n.httpServersMu.Lock()
	defer n.httpServersMu.Unlock()

	for port, mux := range n.httpServers {
		addr := fmt.Sprintf(":%d", port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("chanflow: listen on %s: %w", addr, err)
		}
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		n.servers = append(n.servers, srv)

		n.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				n.Logger.Error("HTTP server stopped", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr)
	}
	return nil
}

func (n *Network) stopHTTPServers() {
	n.httpServersMu.Lock()
	servers := n.servers
	n.servers = nil
	n.httpServersMu.Unlock()

	for _, srv := range servers {
		ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		if err := srv.Shutdown(ctx); err != nil {
			n.Logger.Error("Failed to stop HTTP server", err, nil)
		}
		cancel()
	}
}
