package runtime

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	jsoncodecpkg "github.com/drblury/chanflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
	backendpkg "github.com/drblury/chanflow/transport"
)

const (
	defaultTopologyPort = 8081
	defaultMetricsPort  = 9090
)

// Topology is a read-only snapshot of a network, as served by /api/topology.
type Topology struct {
	Network     string            `json:"network"`
	Channels    []ChannelTopology `json:"channels"`
	Consumers   []ConsumerStats   `json:"consumers"`
	Mailbox     MailboxTopology   `json:"mailbox"`
	Resources   ResourceUsage     `json:"resources"`
	CollectedAt time.Time         `json:"collected_at"`
}

// ChannelTopology describes one registered channel and the graph currently
// installed behind it.
type ChannelTopology struct {
	Name        string                `json:"name"`
	MessageType string                `json:"message_type"`
	Untyped     bool                  `json:"untyped,omitempty"`
	Connections int                   `json:"connections"`
	Discarded   uint64                `json:"discarded"`
	Swaps       channelspkg.SwapStats `json:"swaps"`
	Graph       channelspkg.Node      `json:"graph"`
}

type MailboxTopology struct {
	Running   bool                    `json:"running"`
	Topics    []string                `json:"topics"`
	Transport backendpkg.Capabilities `json:"transport"`
}

// Topology describes the network without blocking senders or swaps. Channel
// graphs are read through the adapters' current outputs, so a swap racing the
// snapshot may or may not be reflected.
func (n *Network) Topology() Topology {
	n.mu.RLock()
	entries := make([]*registeredChannel, 0, len(n.channels))
	for _, entry := range n.channels {
		entries = append(entries, entry)
	}
	n.mu.RUnlock()

	channels := make([]ChannelTopology, 0, len(entries))
	for _, entry := range entries {
		channels = append(channels, ChannelTopology{
			Name:        entry.name,
			MessageType: entry.messageType,
			Untyped:     entry.untyped,
			Connections: n.activeConnections(entry.name),
			Discarded:   entry.discarded.Load(),
			Swaps:       entry.stats(),
			Graph:       channelspkg.Describe(entry.adapter),
		})
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })

	topics := n.mailbox.Topics()
	sort.Strings(topics)

	return Topology{
		Network:   n.Conf.NetworkName(),
		Channels:  channels,
		Consumers: n.ConsumerStats(),
		Mailbox: MailboxTopology{
			Running:   n.mailbox.IsRunning(),
			Topics:    topics,
			Transport: n.mailbox.Capabilities(),
		},
		Resources:   n.resources.sample(),
		CollectedAt: time.Now().UTC(),
	}
}

// TopologyHandler serves Topology as JSON.
func (n *Network) TopologyHandler() http.Handler {
	return http.HandlerFunc(n.handleGetTopology)
}

// MetricsHandler serves the network's Prometheus registry.
func (n *Network) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(n.gatherer, promhttp.HandlerOpts{})
}

func (n *Network) registerTopologyAPI() {
	if !n.Conf.TopologyEnabled {
		return
	}
	port := n.Conf.TopologyPort
	if port == 0 {
		port = defaultTopologyPort
	}
	n.RegisterHTTPHandler(port, "/api/topology", n.TopologyHandler())
}

func (n *Network) registerMetricsEndpoint() {
	if !n.Conf.MetricsEnabled {
		return
	}
	port := n.Conf.MetricsPort
	if port == 0 {
		port = defaultMetricsPort
	}
	n.RegisterHTTPHandler(port, "/metrics", n.MetricsHandler())
}

func (n *Network) handleGetTopology(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if len(n.Conf.TopologyCORSAllowedOrigins) > 0 {
		if allowed := n.allowedCORSOrigin(r.Header.Get("Origin")); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
	}

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := jsoncodecpkg.Encode(w, n.Topology()); err != nil {
		n.Logger.Error("Failed to encode topology", err, loggingpkg.LogFields{"path": r.URL.Path})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// allowedCORSOrigin returns the Access-Control-Allow-Origin value for the
// request origin, or "" when it is not allowed.
func (n *Network) allowedCORSOrigin(requestOrigin string) string {
	for _, allowed := range n.Conf.TopologyCORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if requestOrigin != "" && strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
