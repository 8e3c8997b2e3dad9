package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrConsumerRequired    = sterrors.New("chanflow: consumer is required")
	ErrNoConsumers         = sterrors.New("chanflow: channel configurator has no consumers")
	ErrNoChannels          = sterrors.New("chanflow: connection configurator has no channels")
	ErrConfiguratorNil     = sterrors.New("chanflow: configurator is nil")
	ErrAdapterRequired     = sterrors.New("chanflow: channel adapter is required")
	ErrCodecRequired       = sterrors.New("chanflow: mailbox codec is required")
	ErrFilterRequired      = sterrors.New("chanflow: filter predicate is required")
	ErrSpanNameRequired    = sterrors.New("chanflow: trace span name is required")
	ErrMailboxRequired     = sterrors.New("chanflow: mailbox is required")
	ErrTopicRequired       = sterrors.New("chanflow: mailbox topic is required")
	ErrAlreadyApplied      = sterrors.New("chanflow: configurator was already applied")
	ErrNetworkRequired     = sterrors.New("chanflow: network is required")
	ErrChannelNameRequired = sterrors.New("chanflow: channel name is required")
	ErrChannelExists       = sterrors.New("chanflow: channel is already registered")
	ErrChannelNotFound     = sterrors.New("chanflow: channel is not registered")
	ErrChannelTypeMismatch = sterrors.New("chanflow: channel is registered with a different message type")
	ErrConfigRequired      = sterrors.New("chanflow: configuration is required")
	ErrLoggerRequired      = sterrors.New("chanflow: logger is required")
	ErrMailboxNotRunning   = sterrors.New("chanflow: mailbox is not running")
	ErrMailboxClosed       = sterrors.New("chanflow: mailbox is closed")
	ErrTopicInUse          = sterrors.New("chanflow: mailbox topic is already attached")
	ErrChannelStopped      = sterrors.New("chanflow: mailbox channel is stopped")
	ErrNetworkClosed       = sterrors.New("chanflow: network is closed")
)

// ConfigurationError reports a configurator whose inputs are missing or
// contradictory. Path locates the node inside the configurator tree, for
// example "connection/channel[0]/consumer[1]".
type ConfigurationError struct {
	Path string
	Err  error
}

func (e ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("chanflow: invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("chanflow: invalid configuration at %s: %v", e.Path, e.Err)
}

func (e ConfigurationError) Unwrap() error {
	return e.Err
}

// ConfigValidationError wraps a failed Config.Validate result.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("chanflow: invalid network configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// UndeliverableMessageError marks a mailbox message that can never reach its
// consumer, such as a payload the codec cannot decode. It is not retried.
type UndeliverableMessageError struct {
	Topic   string
	Payload string
	Err     error
}

func (e *UndeliverableMessageError) Error() string {
	return fmt.Sprintf("chanflow: undeliverable message on %s: %v", e.Topic, e.Err)
}

func (e *UndeliverableMessageError) Unwrap() error {
	return e.Err
}

// IsUndeliverable reports whether err wraps an UndeliverableMessageError.
func IsUndeliverable(err error) bool {
	var target *UndeliverableMessageError
	return sterrors.As(err, &target)
}
