package configuration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
	mailboxpkg "github.com/drblury/chanflow/internal/runtime/mailbox"
)

type order struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

// sink is a consumer recording what it receives.
type sink[T any] struct {
	mu       sync.Mutex
	messages []T
	err      error
}

func (s *sink[T]) consume(message T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return s.err
}

func (s *sink[T]) Send(message T) error { return s.consume(message) }

func (s *sink[T]) Messages() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := make([]T, len(s.messages))
	copy(clone, s.messages)
	return clone
}

type observation struct {
	consumer    string
	messageType string
	err         error
}

type fakeObserver struct {
	mu           sync.Mutex
	observations []observation
}

func (o *fakeObserver) ObserveDelivery(consumer, messageType string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observations = append(o.observations, observation{consumer: consumer, messageType: messageType, err: err})
}

func (o *fakeObserver) Observations() []observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observation(nil), o.observations...)
}

// startMailbox returns a running mailbox that is closed with the test.
func startMailbox(t *testing.T) *mailboxpkg.Mailbox {
	t.Helper()
	conf := &configpkg.Config{
		RetryMaxRetries:      1,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     time.Millisecond,
	}
	mb, err := mailboxpkg.TryNew(context.Background(), conf, loggingpkg.NewNopServiceLogger(), mailboxpkg.Dependencies{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mb.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("mailbox did not stop")
		}
	})

	select {
	case <-mb.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("mailbox did not start")
	}
	return mb
}
