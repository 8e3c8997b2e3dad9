package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
)

func TestConsumerRecord_CollectsExtendedMetrics(t *testing.T) {
	registry := newConsumerStatsRegistry()
	rec := registry.record("billing", "main.Order")
	now := time.Now()

	rec.observe(2*time.Millisecond, nil, ErrorCategoryNone, now)
	rec.observe(4*time.Millisecond, errors.New("downstream"), ErrorCategoryOther, now.Add(time.Second))

	stats := rec.snapshot()
	assert.Equal(t, "billing", stats.Consumer)
	assert.EqualValues(t, 2, stats.MessagesDelivered)
	assert.EqualValues(t, 1, stats.MessagesFailed)
	assert.Equal(t, int64(6*time.Millisecond), stats.TotalProcessingTime)
	assert.Equal(t, int64(3*time.Millisecond), stats.Latency.AverageNs)
	assert.Equal(t, int64(4*time.Millisecond), stats.Latency.LastNs)
	assert.Equal(t, 2, stats.Latency.SampleSize)
	assert.EqualValues(t, 2, stats.Throughput.MessagesInWindow)
	assert.InDelta(t, 2.0, stats.Throughput.CurrentRPS, 0.001)
	assert.EqualValues(t, 1, stats.Errors.Other)
	assert.Equal(t, "downstream", stats.Errors.LastError)

	assert.Same(t, rec, registry.record("billing", "main.Order"))
}

func TestConsumerStatsRegistry_SnapshotIsSorted(t *testing.T) {
	registry := newConsumerStatsRegistry()
	registry.record("shipping", "main.Order")
	registry.record("billing", "main.Refund")
	registry.record("billing", "main.Order")

	snapshot := registry.snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "billing", snapshot[0].Consumer)
	assert.Equal(t, "main.Order", snapshot[0].MessageType)
	assert.Equal(t, "main.Refund", snapshot[1].MessageType)
	assert.Equal(t, "shipping", snapshot[2].Consumer)
}

func TestDefaultErrorClassifier(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCategory
	}{
		{nil, ErrorCategoryNone},
		{&errspkg.UndeliverableMessageError{Topic: "t", Err: errors.New("bad json")}, ErrorCategoryUndeliverable},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ErrorCategoryCanceled},
		{context.Canceled, ErrorCategoryCanceled},
		{errspkg.ErrChannelStopped, ErrorCategoryStopped},
		{errspkg.ErrMailboxNotRunning, ErrorCategoryStopped},
		{errors.New("boom"), ErrorCategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, defaultErrorClassifier(tt.err), "%v", tt.err)
	}
}

func TestLatencyWindow_Percentiles(t *testing.T) {
	lw := newLatencyWindow(4)
	for _, ms := range []int{9, 1, 2, 3, 4} {
		lw.add(time.Duration(ms) * time.Millisecond)
	}

	snapshot := lw.snapshot()
	assert.Equal(t, 4, snapshot.SampleSize)
	assert.Equal(t, int64(4*time.Millisecond), snapshot.LastNs)
	assert.Equal(t, int64(2500*time.Microsecond), snapshot.P50Ns)
	assert.Equal(t, int64(4*time.Millisecond), percentile([]int64{1, 2, 3, int64(4 * time.Millisecond)}, 1))
	assert.Zero(t, percentile(nil, 0.5))

	assert.Equal(t, LatencyMetrics{}, newLatencyWindow(0).snapshot())
}

func TestThroughputWindow_DropsExpiredStamps(t *testing.T) {
	tw := newThroughputWindow(time.Minute)
	start := time.Now()

	tw.addAndSnapshot(start)
	tw.addAndSnapshot(start.Add(30 * time.Second))
	snapshot := tw.addAndSnapshot(start.Add(90 * time.Second))

	assert.Equal(t, 2, snapshot.count)
	assert.InDelta(t, 60.0, snapshot.windowSeconds, 0.001)
}

func TestResourceSampler(t *testing.T) {
	sampler := newResourceSampler()

	first := sampler.sample()
	assert.Zero(t, first.CPUPercent)
	assert.NotZero(t, first.MemoryBytes)
	assert.Positive(t, first.Goroutines)

	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, sampler.sample().CPUPercent, 0.0)

	var nilSampler *resourceSampler
	assert.Equal(t, ResourceUsage{}, nilSampler.sample())

	empty := &resourceSampler{}
	assert.NotZero(t, empty.sample().MemoryBytes)
}
