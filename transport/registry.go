package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

type backend struct {
	build Builder
	caps  Capabilities
}

// Registry maps backend names to builders and capabilities.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]backend
}

// DefaultRegistry is the registry mailboxes build from unless a custom
// factory is supplied.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]backend)}
}

// Register adds or replaces a backend. caps.Name is forced to name.
func (r *Registry) Register(name string, builder Builder, caps Capabilities) error {
	if builder == nil {
		return fmt.Errorf("%w: %s", ErrBuilderRequired, name)
	}
	caps.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = backend{build: builder, caps: caps}
	return nil
}

// Capabilities returns the capabilities of name. Unknown backends report
// only their name.
func (r *Registry) Capabilities(name string) Capabilities {
	caps, _ := r.Lookup(name)
	return caps
}

// Lookup reports the capabilities of name and whether it is registered.
func (r *Registry) Lookup(name string) (Capabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return Capabilities{Name: name}, false
	}
	return b.caps, true
}

// Build creates the backend named by cfg.GetMailboxTransport. A buffer size
// on a backend that does not support buffering is rejected.
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	if cfg == nil {
		return Transport{}, ErrConfigRequired
	}
	name := cfg.GetMailboxTransport()

	r.mu.RLock()
	b, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return Transport{}, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownTransport, name, r.Names())
	}
	if cfg.GetMailboxBufferSize() > 0 && !b.caps.Buffered {
		return Transport{}, fmt.Errorf("chanflow: transport %q does not support a buffer size", name)
	}
	return b.build(ctx, cfg, logger)
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a backend to the default registry.
func Register(name string, builder Builder, caps Capabilities) error {
	return DefaultRegistry.Register(name, builder, caps)
}

// Build creates a transport from the default registry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}
