/*
Package runtime hosts chanflow channel networks.

# Architecture Overview

A Network is a named set of channel adapters. Producers send through an
adapter; configurators decide what sits behind it. Swapping the output of an
adapter is lock-free, so consumers attach and detach while messages flow.

# Package Structure

## Network (network.go)

The Network struct ties together:
  - Registered typed and untyped channel adapters
  - Connections applied through configurators
  - A mailbox for consumers that run asynchronously
  - HTTP servers for metrics and the topology API

## Observability (metrics.go, stats.go, hooks.go, topology.go)

  - NetworkMetrics: Prometheus counters for shunt discards, deliveries and
    adapter swaps
  - ConsumerStats: latency percentiles, throughput and error breakdown per
    instrumented consumer
  - LoggingHooks, MetricsHooks, AlertingHooks: ready-made DeliveryHooks
  - Topology: a read-only snapshot served as JSON on /api/topology

## Sub-packages

  - channels: channel contracts, adapters, shunts and decorators
  - configuration: connection, channel and consumer configurators
  - mailbox: asynchronous delivery over an in-process Watermill pub/sub
  - transport: registry of pub/sub backends for the mailbox
  - config: Network configuration and validation
  - errors: sentinel errors and typed error wrappers
  - logging: ServiceLogger contract and adapters
  - ids, jsoncodec, metadata: small shared helpers

# Usage

	net := runtime.NewNetwork(ctx, &config.Config{Name: "orders"}, logger, runtime.NetworkDependencies{})
	orders, _ := runtime.RegisterChannel[Order](net, "orders")

	conn := configuration.NewConnectionConfigurator[Order]()
	configuration.AddConsumer(conn, handleOrder).Named("billing").Instrumented(net.Observer())
	connection, _ := runtime.Connect(net, "orders", conn)

	_ = orders.Send(Order{ID: "o-1"})
	connection.Disconnect()

# Thread Safety

Send and ChangeOutputChannel may be called from any goroutine. Registering
channels and connecting configurators is safe while messages flow.
*/
package runtime
