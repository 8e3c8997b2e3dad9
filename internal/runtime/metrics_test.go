package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	configurationpkg "github.com/drblury/chanflow/internal/runtime/configuration"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
)

func TestNetworkMetrics_RegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNetworkMetrics(reg, "shop", nil)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())
	m.Unregister()
	m.Unregister()
	require.NoError(t, m.Register())
}

func TestNetworkMetrics_SharesCollectorsAlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewNetworkMetrics(reg, "shop", nil)
	second := NewNetworkMetrics(reg, "warehouse", nil)
	require.NoError(t, first.Register())
	require.NoError(t, second.Register())

	first.RecordDiscard("orders")
	second.RecordDiscard("orders")
	second.RecordDiscard("orders")

	assert.Equal(t, 1.0, testutil.ToFloat64(first.discardedTotal.WithLabelValues("shop", "orders")))
	assert.Equal(t, 2.0, testutil.ToFloat64(first.discardedTotal.WithLabelValues("warehouse", "orders")))
	assert.Same(t, first.discardedTotal, second.discardedTotal)
	assert.Same(t, first.deliveryDuration, second.deliveryDuration)
	assert.Same(t, first.adapters, second.adapters)
}

func TestNetworkMetrics_ObserveDelivery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNetworkMetrics(reg, "shop", nil)
	require.NoError(t, m.Register())

	m.ObserveDelivery("billing", "main.Order", 5*time.Millisecond, nil)
	m.ObserveDelivery("billing", "main.Order", 7*time.Millisecond, nil)
	m.ObserveDelivery("billing", "main.Order", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("shop", "billing", "main.Order", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("shop", "billing", "main.Order", OutcomeFailure)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.deliveryDuration))
}

func TestNetworkMetrics_ExportsAdapterSwaps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNetworkMetrics(reg, "shop", func() map[string]channelspkg.SwapStats {
		return map[string]channelspkg.SwapStats{
			"orders": {Swaps: 3, Retries: 1},
			"audit":  {},
		}
	})
	require.NoError(t, m.Register())

	expected := `
# HELP chanflow_adapter_swaps_total Successful output replacements of a channel adapter
# TYPE chanflow_adapter_swaps_total counter
chanflow_adapter_swaps_total{channel="audit",network="shop"} 0
chanflow_adapter_swaps_total{channel="orders",network="shop"} 3
# HELP chanflow_adapter_swap_retries_total Compare-and-set races lost while replacing an adapter output
# TYPE chanflow_adapter_swap_retries_total counter
chanflow_adapter_swap_retries_total{channel="audit",network="shop"} 0
chanflow_adapter_swap_retries_total{channel="orders",network="shop"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"chanflow_adapter_swaps_total", "chanflow_adapter_swap_retries_total"))
}

func TestNetworkMetrics_NilSourceExportsNothing(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, NewNetworkMetrics(reg, "shop", nil).Register())

	count, err := testutil.GatherAndCount(reg, "chanflow_adapter_swaps_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNetworkMetrics_SharedRegistryExportsEveryNetwork(t *testing.T) {
	reg := prometheus.NewRegistry()
	newNetwork := func(name string) *Network {
		n, err := TryNewNetwork(context.Background(), &configpkg.Config{Name: name, MetricsEnabled: true},
			loggingpkg.NewNopServiceLogger(), NetworkDependencies{Registerer: reg})
		require.NoError(t, err)
		t.Cleanup(func() { _ = n.Close() })
		return n
	}
	shop := newNetwork("shop")
	warehouse := newNetwork("warehouse")

	_, err := RegisterChannel[int](shop, "a")
	require.NoError(t, err)
	_, err = RegisterChannel[int](warehouse, "b")
	require.NoError(t, err)

	conn := configurationpkg.NewConnectionConfigurator[int]()
	configurationpkg.AddConsumer(conn, (&collector[int]{}).consume)
	_, err = Connect(warehouse, "b", conn)
	require.NoError(t, err)

	expected := `
# HELP chanflow_adapter_swaps_total Successful output replacements of a channel adapter
# TYPE chanflow_adapter_swaps_total counter
chanflow_adapter_swaps_total{channel="a",network="shop"} 0
chanflow_adapter_swaps_total{channel="b",network="warehouse"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "chanflow_adapter_swaps_total"))

	require.NoError(t, shop.Close())

	count, err := testutil.GatherAndCount(reg, "chanflow_adapter_swaps_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNetworkMetrics_SameChannelNameInTwoNetworks(t *testing.T) {
	reg := prometheus.NewRegistry()
	source := func(swaps uint64) func() map[string]channelspkg.SwapStats {
		return func() map[string]channelspkg.SwapStats {
			return map[string]channelspkg.SwapStats{"orders": {Swaps: swaps}}
		}
	}
	require.NoError(t, NewNetworkMetrics(reg, "shop", source(2)).Register())
	require.NoError(t, NewNetworkMetrics(reg, "warehouse", source(5)).Register())

	expected := `
# HELP chanflow_adapter_swaps_total Successful output replacements of a channel adapter
# TYPE chanflow_adapter_swaps_total counter
chanflow_adapter_swaps_total{channel="orders",network="shop"} 2
chanflow_adapter_swaps_total{channel="orders",network="warehouse"} 5
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "chanflow_adapter_swaps_total"))
}
