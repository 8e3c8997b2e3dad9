// Package transport resolves a network Config into the pub/sub its mailbox
// runs on. Backends live in github.com/drblury/chanflow/transport/*.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"

	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	backendpkg "github.com/drblury/chanflow/transport"

	// Register the built-in Go channel backend.
	_ "github.com/drblury/chanflow/transport/channel"
)

// Transport is the publisher and subscriber pair a mailbox runs on.
type Transport = backendpkg.Transport

// Factory abstracts how a mailbox obtains its pub/sub.
type Factory interface {
	Build(ctx context.Context, conf *configpkg.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory builds from backendpkg.DefaultRegistry.
func DefaultFactory() Factory {
	return RegistryFactory(backendpkg.DefaultRegistry)
}

// RegistryFactory builds from reg.
func RegistryFactory(reg *backendpkg.Registry) Factory {
	return FactoryFunc(func(ctx context.Context, conf *configpkg.Config, logger watermill.LoggerAdapter) (Transport, error) {
		if conf == nil {
			return Transport{}, backendpkg.ErrConfigRequired
		}
		return reg.Build(ctx, conf, logger)
	})
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func(ctx context.Context, conf *configpkg.Config, logger watermill.LoggerAdapter) (Transport, error)

func (f FactoryFunc) Build(ctx context.Context, conf *configpkg.Config, logger watermill.LoggerAdapter) (Transport, error) {
	return f(ctx, conf, logger)
}

// CapabilitiesOf reports the capabilities of the backend conf selects.
func CapabilitiesOf(conf *configpkg.Config) backendpkg.Capabilities {
	if conf == nil {
		conf = &configpkg.Config{}
	}
	return backendpkg.GetCapabilities(conf.GetMailboxTransport())
}
