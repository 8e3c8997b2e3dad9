package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMailboxTransport is the in-process pub/sub used when
// MailboxTransport is empty.
const DefaultMailboxTransport = "channel"

// Config groups the settings used to initialise a Network and its mailbox.
// The zero value is valid: an in-process mailbox with library defaults and
// no HTTP endpoints.
type Config struct {
	// Name labels the network in logs and metrics. Defaults to "chanflow".
	Name string

	// MailboxTransport selects the registered in-process pub/sub backing
	// asynchronous consumers. Defaults to "channel".
	MailboxTransport string
	// MailboxBufferSize is the per-subscriber output buffer of the mailbox
	// pub/sub. Zero means unbuffered.
	MailboxBufferSize int64

	// PoisonQueue receives mailbox messages whose consumer keeps failing after
	// retries. When empty, such messages are logged and dropped.
	PoisonQueue string

	// Retry tuning for mailbox consumers. Zero values fall back to library defaults.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsPort is the port where Prometheus metrics will be exposed.
	MetricsPort int

	// Topology API configuration.
	TopologyEnabled bool
	// TopologyPort is the port serving /api/topology. Defaults to 8081.
	TopologyPort int
	// TopologyCORSAllowedOrigins specifies allowed origins for CORS. Use "*" for development
	// or specific origins like "https://example.com" for production. Empty disables CORS headers.
	TopologyCORSAllowedOrigins []string
}

// Getter methods to implement transport.Config interface.
func (c *Config) GetMailboxTransport() string {
	if c.MailboxTransport == "" {
		return DefaultMailboxTransport
	}
	return c.MailboxTransport
}
func (c *Config) GetMailboxBufferSize() int64 { return c.MailboxBufferSize }

// NetworkName returns Name or its default.
func (c *Config) NetworkName() string {
	if c == nil || c.Name == "" {
		return "chanflow"
	}
	return c.Name
}

func (c Config) String() string {
	// Use a type alias to avoid infinite recursion when printing
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(c))
}

// Validate checks the configuration for contradictory or out-of-range values.
// Returns an error describing every problem found.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateMailbox()...)
	errs = append(errs, c.validateRetry()...)
	errs = append(errs, c.validatePorts()...)

	return errors.Join(errs...)
}

func (c *Config) validateMailbox() []error {
	var errs []error
	if c.MailboxBufferSize < 0 {
		errs = append(errs, errors.New("mailbox: buffer size cannot be negative"))
	}
	if strings.TrimSpace(c.MailboxTransport) != c.MailboxTransport {
		errs = append(errs, fmt.Errorf("mailbox: transport name %q has surrounding whitespace", c.MailboxTransport))
	}
	return errs
}

// validateRetry checks retry configuration values.
func (c *Config) validateRetry() []error {
	var errs []error
	if c.RetryMaxRetries < 0 {
		errs = append(errs, errors.New("retry: max retries cannot be negative"))
	}
	if c.RetryInitialInterval < 0 {
		errs = append(errs, errors.New("retry: initial interval cannot be negative"))
	}
	if c.RetryMaxInterval < 0 {
		errs = append(errs, errors.New("retry: max interval cannot be negative"))
	}
	if c.RetryMaxInterval > 0 && c.RetryInitialInterval > 0 && c.RetryInitialInterval > c.RetryMaxInterval {
		errs = append(errs, errors.New("retry: initial interval cannot exceed max interval"))
	}
	return errs
}

// validatePorts checks port configuration values.
func (c *Config) validatePorts() []error {
	var errs []error
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	if c.TopologyPort < 0 || c.TopologyPort > 65535 {
		errs = append(errs, fmt.Errorf("topology: invalid port %d", c.TopologyPort))
	}
	return errs
}

// ValidateConfig is a convenience function to validate a config pointer.
// Returns nil if the config is valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
