package transport

// Capabilities describes what a mailbox backend guarantees. Mailboxes and
// the topology API read them at runtime.
type Capabilities struct {
	// Name is the registered backend name.
	Name string `json:"name"`

	// InProcess is true when messages never leave the process.
	InProcess bool `json:"in_process"`

	// PreservesOrder is true when a topic's subscriber sees messages in
	// publish order.
	PreservesOrder bool `json:"preserves_order"`

	// Redelivers is true when a nacked message is delivered again.
	Redelivers bool `json:"redelivers"`

	// Buffered is true when subscribers accept an output buffer size.
	Buffered bool `json:"buffered"`
}

// ChannelCapabilities describes the Go channel backend. Order is not
// preserved: the pub/sub hands every message to its subscribers on a
// separate goroutine.
var ChannelCapabilities = Capabilities{
	Name:       "channel",
	InProcess:  true,
	Redelivers: true,
	Buffered:   true,
}

// GetCapabilities returns the capabilities registered for name in the
// default registry.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.Capabilities(name)
}
