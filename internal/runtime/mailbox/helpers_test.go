package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
)

type order struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

type recorder[T any] struct {
	mu       sync.Mutex
	messages []T
	attempts int
	err      error
	panicMsg string
}

func (r *recorder[T]) Send(message T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *recorder[T]) Messages() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := make([]T, len(r.messages))
	copy(clone, r.messages)
	return clone
}

func (r *recorder[T]) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func fastRetryConfig() *configpkg.Config {
	return &configpkg.Config{
		RetryMaxRetries:      2,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     2 * time.Millisecond,
	}
}

func newTestMailbox(t *testing.T, conf *configpkg.Config, deps Dependencies) *Mailbox {
	t.Helper()
	if conf == nil {
		conf = fastRetryConfig()
	}
	mb, err := TryNew(context.Background(), conf, loggingpkg.NewNopServiceLogger(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mb.Close() })
	return mb
}

// runMailbox starts mb and waits until it accepts sends.
func runMailbox(t *testing.T, mb *Mailbox) {
	t.Helper()
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
}
