package runtime

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
)

const metricsNamespace = "chanflow"

// Delivery outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// NetworkMetrics holds the Prometheus collectors of a Network: shunt
// discards, delivery outcomes and durations, and the swap counters of every
// registered adapter. Every series carries a network label, so several
// networks can share one registry.
type NetworkMetrics struct {
	mu sync.Mutex

	network          string
	discardedTotal   *prometheus.CounterVec
	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	adapters         *adapterCollector
	adapterStats     func() map[string]channelspkg.SwapStats

	registerer prometheus.Registerer
	registered bool
}

func newNetworkCounterVec(subsystem, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewNetworkMetrics creates the collectors of the network named network.
// adapterStats is read on every scrape and reports the swap counters per
// channel name; it may be nil.
func NewNetworkMetrics(registerer prometheus.Registerer, network string, adapterStats func() map[string]channelspkg.SwapStats) *NetworkMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if adapterStats == nil {
		adapterStats = func() map[string]channelspkg.SwapStats { return nil }
	}

	return &NetworkMetrics{
		network:        network,
		registerer:     registerer,
		adapterStats:   adapterStats,
		discardedTotal: newNetworkCounterVec("channel", "discarded_total", "Messages discarded by the shunt of an unwired channel", []string{"network", "channel"}),
		deliveriesTotal: newNetworkCounterVec("consumer", "deliveries_total", "Deliveries to instrumented consumers by outcome",
			[]string{"network", "consumer", "message_type", "outcome"}),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "consumer",
				Name:      "delivery_duration_seconds",
				Help:      "Time instrumented consumers spent handling a message",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"network", "consumer", "message_type"},
		),
		adapters: newAdapterCollector(),
	}
}

// Register registers the collectors. Safe to call multiple times. Vectors
// and the adapter collector already registered by another network are
// reused, and this network's adapters join the shared collector.
func (m *NetworkMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	if err := registerCounterVec(m.registerer, &m.discardedTotal); err != nil {
		return err
	}
	if err := registerCounterVec(m.registerer, &m.deliveriesTotal); err != nil {
		return err
	}
	if err := m.registerer.Register(m.deliveryDuration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			m.deliveryDuration = existing
		}
	}
	if err := m.registerer.Register(m.adapters); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		existing, ok := are.ExistingCollector.(*adapterCollector)
		if !ok {
			return err
		}
		m.adapters = existing
	}
	m.adapters.add(m, m.network, m.adapterStats)

	m.registered = true
	return nil
}

// Unregister stops exporting this network's adapter counters. Counter
// series already recorded stay in the registry. Safe to call multiple times.
func (m *NetworkMetrics) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registered {
		return
	}
	m.adapters.remove(m)
	m.registered = false
}

func registerCounterVec(registerer prometheus.Registerer, vec **prometheus.CounterVec) error {
	err := registerer.Register(*vec)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return err
	}
	if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
		*vec = existing
	}
	return nil
}

// RecordDiscard counts one message dropped by channel's shunt.
func (m *NetworkMetrics) RecordDiscard(channel string) {
	m.discardedTotal.WithLabelValues(m.network, channel).Inc()
}

// ObserveDelivery implements channels.DeliveryObserver.
func (m *NetworkMetrics) ObserveDelivery(consumer, messageType string, elapsed time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.deliveriesTotal.WithLabelValues(m.network, consumer, messageType, outcome).Inc()
	m.deliveryDuration.WithLabelValues(m.network, consumer, messageType).Observe(elapsed.Seconds())
}

type adapterSource struct {
	network string
	stats   func() map[string]channelspkg.SwapStats
}

// adapterCollector exports the swap counters kept by the adapters
// themselves, so the hot path never touches Prometheus. One collector per
// registry serves every registered network.
type adapterCollector struct {
	mu      sync.RWMutex
	sources map[*NetworkMetrics]adapterSource
	swaps   *prometheus.Desc
	retries *prometheus.Desc
}

func newAdapterCollector() *adapterCollector {
	return &adapterCollector{
		sources: make(map[*NetworkMetrics]adapterSource),
		swaps: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "adapter", "swaps_total"),
			"Successful output replacements of a channel adapter",
			[]string{"network", "channel"}, nil,
		),
		retries: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "adapter", "swap_retries_total"),
			"Compare-and-set races lost while replacing an adapter output",
			[]string{"network", "channel"}, nil,
		),
	}
}

func (c *adapterCollector) add(owner *NetworkMetrics, network string, stats func() map[string]channelspkg.SwapStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[owner] = adapterSource{network: network, stats: stats}
}

func (c *adapterCollector) remove(owner *NetworkMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, owner)
}

func (c *adapterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.swaps
	ch <- c.retries
}

// Collect sums the counters of networks sharing a name, since their series
// would otherwise collide.
func (c *adapterCollector) Collect(ch chan<- prometheus.Metric) {
	type key struct{ network, channel string }
	totals := make(map[key]channelspkg.SwapStats)

	c.mu.RLock()
	for _, src := range c.sources {
		for name, stats := range src.stats() {
			k := key{src.network, name}
			sum := totals[k]
			sum.Swaps += stats.Swaps
			sum.Retries += stats.Retries
			totals[k] = sum
		}
	}
	c.mu.RUnlock()

	for k, stats := range totals {
		ch <- prometheus.MustNewConstMetric(c.swaps, prometheus.CounterValue, float64(stats.Swaps), k.network, k.channel)
		ch <- prometheus.MustNewConstMetric(c.retries, prometheus.CounterValue, float64(stats.Retries), k.network, k.channel)
	}
}
