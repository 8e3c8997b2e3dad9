package channels

import (
	"sync"
	"sync/atomic"
)

// recordingChannel remembers every message it receives.
type recordingChannel[T any] struct {
	mu       sync.Mutex
	messages []T
	err      error
}

func (r *recordingChannel[T]) Send(message T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return r.err
}

func (r *recordingChannel[T]) Messages() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := make([]T, len(r.messages))
	copy(clone, r.messages)
	return clone
}

// countingChannel is an immutable version marker used to check that no swap
// is lost or applied twice.
type countingChannel struct {
	version int
}

func (c *countingChannel) Send(int) error { return nil }

type atomicCounter struct {
	n atomic.Int64
}

func (c *atomicCounter) inc() { c.n.Add(1) }

func (c *atomicCounter) load() int64 { return c.n.Load() }
