package runtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	configurationpkg "github.com/drblury/chanflow/internal/runtime/configuration"
	jsoncodecpkg "github.com/drblury/chanflow/internal/runtime/jsoncodec"
)

func TestTopology_DescribesChannels(t *testing.T) {
	n, _ := newTestNetwork(t, &configpkg.Config{Name: "shop"})
	orders, err := RegisterChannel[order](n, "orders")
	require.NoError(t, err)
	_, err = n.RegisterUntypedChannel("audit")
	require.NoError(t, err)

	conn := configurationpkg.NewConnectionConfigurator[order]()
	configurationpkg.AddConsumer(conn, (&collector[order]{}).consume).
		Named("billing").
		Where(func(o order) bool { return o.Total > 0 })
	_, err = Connect(n, "orders", conn)
	require.NoError(t, err)
	require.NoError(t, orders.Send(order{ID: "o-1", Total: 1}))

	topology := n.Topology()
	assert.Equal(t, "shop", topology.Network)
	require.Len(t, topology.Channels, 2)

	audit := topology.Channels[0]
	assert.Equal(t, "audit", audit.Name)
	assert.True(t, audit.Untyped)
	assert.Equal(t, channelspkg.KindUntypedAdapter, audit.Graph.Kind)
	require.Len(t, audit.Graph.Children, 1)
	assert.Equal(t, channelspkg.KindShunt, audit.Graph.Children[0].Kind)

	ordersTopology := topology.Channels[1]
	assert.Equal(t, "orders", ordersTopology.Name)
	assert.Equal(t, "runtime.order", ordersTopology.MessageType)
	assert.Equal(t, 1, ordersTopology.Connections)
	assert.EqualValues(t, 1, ordersTopology.Swaps.Swaps)
	assert.Equal(t, channelspkg.KindAdapter, ordersTopology.Graph.Kind)
	require.Len(t, ordersTopology.Graph.Children, 1)
	filter := ordersTopology.Graph.Children[0]
	assert.Equal(t, channelspkg.KindFilter, filter.Kind)
	require.Len(t, filter.Children, 1)
	assert.Equal(t, "billing", filter.Children[0].Name)

	assert.False(t, topology.Mailbox.Running)
	assert.Equal(t, "channel", topology.Mailbox.Transport.Name)
	assert.True(t, topology.Mailbox.Transport.InProcess)
	assert.Positive(t, topology.Resources.Goroutines)
}

func TestTopologyHandler_ReturnsJSON(t *testing.T) {
	n, _ := newTestNetwork(t, &configpkg.Config{
		Name:                       "shop",
		TopologyCORSAllowedOrigins: []string{"https://ops.example.com"},
	})
	_, err := RegisterChannel[order](n, "orders")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/topology", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()

	n.TopologyHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	var payload Topology
	require.NoError(t, jsoncodecpkg.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "shop", payload.Network)
	require.Len(t, payload.Channels, 1)
	assert.Equal(t, "orders", payload.Channels[0].Name)
	assert.Equal(t, channelspkg.KindAdapter, payload.Channels[0].Graph.Kind)
}

func TestTopologyHandler_CORSAndMethods(t *testing.T) {
	n, _ := newTestNetwork(t, &configpkg.Config{TopologyCORSAllowedOrigins: []string{"*"}})

	preflight := httptest.NewRecorder()
	n.TopologyHandler().ServeHTTP(preflight, httptest.NewRequest(http.MethodOptions, "/api/topology", nil))
	assert.Equal(t, http.StatusNoContent, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))

	post := httptest.NewRecorder()
	n.TopologyHandler().ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/topology", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, post.Code)

	restricted, _ := newTestNetwork(t, &configpkg.Config{TopologyCORSAllowedOrigins: []string{"https://ops.example.com"}})
	req := httptest.NewRequest(http.MethodGet, "/api/topology", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	restricted.TopologyHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsHandler_ServesRegistry(t *testing.T) {
	n, _ := newTestNetwork(t, nil)
	numbers, err := RegisterChannel[int](n, "numbers")
	require.NoError(t, err)
	require.NoError(t, numbers.Send(1))

	rec := httptest.NewRecorder()
	n.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `chanflow_channel_discarded_total{channel="numbers",network="test"} 1`), body)
	assert.Contains(t, body, `chanflow_adapter_swaps_total{channel="numbers",network="test"} 0`)
}
