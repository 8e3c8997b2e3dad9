// Package chanflow builds in-process message networks out of typed channels
// whose consumers can be swapped while producers keep sending.
//
// A producer holds a ChannelAdapter and calls Send. What sits behind the
// adapter is decided by configurators: a ConnectionConfigurator groups
// ChannelConfigurators, each of which fans out to one or more consumers.
// Applying a configurator replaces the adapter's output with a single
// compare-and-set, so a message is delivered either to the old graph or to
// the new one, never to both and never to neither. An adapter with nothing
// connected routes messages to its shunt, which discards them.
//
// Network hosts named adapters and the connections made to them:
//
//	network := chanflow.NewNetwork(ctx, &chanflow.Config{Name: "orders"}, logger, chanflow.NetworkDependencies{})
//	orders, _ := chanflow.RegisterChannel[Order](network, "orders")
//
//	conn := chanflow.NewConnectionConfigurator[Order]()
//	chanflow.AddConsumer(conn, handleOrder).Named("billing")
//	connection, _ := chanflow.Connect(network, "orders", conn)
//
//	_ = orders.Send(Order{ID: "o-1"})
//	connection.Disconnect()
//
// # Consumers
//
// Consumers run synchronously on the sender's goroutine and their error is
// returned from Send. ConsumerConfigurator adds filters (Where), delivery
// hooks (WithHooks), Prometheus and latency instrumentation (Instrumented),
// OpenTelemetry spans (Traced) and asynchronous delivery through the
// network's mailbox (HandleOnMailbox).
//
// # Mailbox
//
// The mailbox is a Watermill router over an in-process pub/sub. Mailbox
// consumers are retried, recovered from panics and, once retries are
// exhausted, forwarded to Config.PoisonQueue or dropped. The default
// middleware chain can be replaced through MailboxDependencies.
//
// # Untyped channels
//
// UntypedChannelAdapter carries values of any type. AddConsumerOf routes the
// values of one Go type to a consumer; other values are ignored.
//
// # Observability
//
// With Config.MetricsEnabled the network exports shunt discards, delivery
// outcomes and adapter swap counters on /metrics. With Config.TopologyEnabled
// it serves a JSON description of every channel graph on /api/topology.
package chanflow
