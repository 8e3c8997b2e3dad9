package runtime

import (
	"context"
	"errors"
	"math"
	"runtime"
	"runtime/metrics"
	"slices"
	"sort"
	"sync"
	"time"

	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
)

const (
	latencySampleSize    = 256
	throughputWindowSize = time.Minute
)

// ConsumerStats is a point-in-time view of one instrumented consumer.
type ConsumerStats struct {
	Consumer            string    `json:"consumer"`
	MessageType         string    `json:"message_type"`
	MessagesDelivered   uint64    `json:"messages_delivered"`
	MessagesFailed      uint64    `json:"messages_failed"`
	TotalProcessingTime int64     `json:"total_processing_time_ns"`
	LastDeliveredAt     time.Time `json:"last_delivered_at"`

	Latency    LatencyMetrics    `json:"latency"`
	Throughput ThroughputMetrics `json:"throughput"`
	Errors     ErrorBreakdown    `json:"errors"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type ThroughputMetrics struct {
	CurrentRPS       float64 `json:"current_rps"`
	WindowSeconds    float64 `json:"window_seconds"`
	MessagesInWindow uint64  `json:"messages_in_window"`
}

// ErrorBreakdown counts failed deliveries per ErrorCategory.
type ErrorBreakdown struct {
	Undeliverable uint64 `json:"undeliverable"`
	Canceled      uint64 `json:"canceled"`
	Stopped       uint64 `json:"stopped"`
	Other         uint64 `json:"other"`
	LastError     string `json:"last_error,omitempty"`
}

// ResourceUsage is a coarse sample of the process hosting the network.
type ResourceUsage struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
	Goroutines  int     `json:"goroutines"`
}

type ErrorCategory string

const (
	ErrorCategoryNone          ErrorCategory = "none"
	ErrorCategoryUndeliverable ErrorCategory = "undeliverable"
	ErrorCategoryCanceled      ErrorCategory = "canceled"
	ErrorCategoryStopped       ErrorCategory = "stopped"
	ErrorCategoryOther         ErrorCategory = "other"
)

// ErrorClassifier buckets consumer errors for ConsumerStats and the
// outcome label of the delivery metrics.
type ErrorClassifier func(error) ErrorCategory

func defaultErrorClassifier(err error) ErrorCategory {
	switch {
	case err == nil:
		return ErrorCategoryNone
	case errspkg.IsUndeliverable(err):
		return ErrorCategoryUndeliverable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryCanceled
	case errors.Is(err, errspkg.ErrChannelStopped),
		errors.Is(err, errspkg.ErrMailboxClosed),
		errors.Is(err, errspkg.ErrMailboxNotRunning):
		return ErrorCategoryStopped
	default:
		return ErrorCategoryOther
	}
}

func (e *ErrorBreakdown) record(category ErrorCategory, err error) {
	switch category {
	case ErrorCategoryNone:
		if err == nil {
			return
		}
		e.Other++
	case ErrorCategoryUndeliverable:
		e.Undeliverable++
	case ErrorCategoryCanceled:
		e.Canceled++
	case ErrorCategoryStopped:
		e.Stopped++
	default:
		e.Other++
	}
	if err != nil {
		e.LastError = err.Error()
	}
}

type consumerKey struct {
	consumer    string
	messageType string
}

// consumerRecord accumulates one consumer's deliveries.
type consumerRecord struct {
	mu         sync.Mutex
	stats      ConsumerStats
	latency    *latencyWindow
	throughput *throughputWindow
}

func (r *consumerRecord) observe(elapsed time.Duration, err error, category ErrorCategory, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.MessagesDelivered++
	if err != nil {
		r.stats.MessagesFailed++
	}
	r.stats.TotalProcessingTime += int64(elapsed)
	r.stats.LastDeliveredAt = now.UTC()

	r.latency.add(elapsed)
	latency := r.latency.snapshot()
	latency.AverageNs = r.stats.TotalProcessingTime / int64(r.stats.MessagesDelivered)
	r.stats.Latency = latency

	window := r.throughput.addAndSnapshot(now)
	r.stats.Throughput = ThroughputMetrics{
		CurrentRPS:       window.currentRPS,
		WindowSeconds:    window.windowSeconds,
		MessagesInWindow: uint64(window.count),
	}

	r.stats.Errors.record(category, err)
}

func (r *consumerRecord) snapshot() ConsumerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// consumerStatsRegistry holds a record per (consumer, message type) pair.
type consumerStatsRegistry struct {
	mu      sync.RWMutex
	records map[consumerKey]*consumerRecord
}

func newConsumerStatsRegistry() *consumerStatsRegistry {
	return &consumerStatsRegistry{records: make(map[consumerKey]*consumerRecord)}
}

func (s *consumerStatsRegistry) record(consumer, messageType string) *consumerRecord {
	key := consumerKey{consumer: consumer, messageType: messageType}

	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok = s.records[key]; ok {
		return rec
	}
	rec = &consumerRecord{
		stats:      ConsumerStats{Consumer: consumer, MessageType: messageType},
		latency:    newLatencyWindow(latencySampleSize),
		throughput: newThroughputWindow(throughputWindowSize),
	}
	s.records[key] = rec
	return rec
}

// snapshot returns every record ordered by consumer, then message type.
func (s *consumerStatsRegistry) snapshot() []ConsumerStats {
	s.mu.RLock()
	records := make([]*consumerRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	out := make([]ConsumerStats, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Consumer != out[j].Consumer {
			return out[i].Consumer < out[j].Consumer
		}
		return out[i].MessageType < out[j].MessageType
	})
	return out
}

// latencyWindow is a ring buffer of the most recent delivery durations.
type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) add(d time.Duration) {
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) snapshot() LatencyMetrics {
	out := LatencyMetrics{LastNs: lw.last}
	if lw.filled == 0 {
		return out
	}
	sorted := make([]int64, 0, lw.filled)
	for i := 0; i < lw.filled; i++ {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		sorted = append(sorted, lw.samples[idx])
	}
	slices.Sort(sorted)

	out.SampleSize = lw.filled
	out.P50Ns = percentile(sorted, 0.50)
	out.P95Ns = percentile(sorted, 0.95)
	out.P99Ns = percentile(sorted, 0.99)
	return out
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, quantile float64) int64 {
	switch {
	case len(sorted) == 0:
		return 0
	case quantile <= 0:
		return sorted[0]
	case quantile >= 1:
		return sorted[len(sorted)-1]
	}
	pos := quantile * float64(len(sorted)-1)
	lower, upper := int(math.Floor(pos)), int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + int64(float64(sorted[upper]-sorted[lower])*frac)
}

// throughputWindow keeps delivery timestamps younger than horizon.
type throughputWindow struct {
	horizon time.Duration
	stamps  []time.Time
}

type throughputSnapshot struct {
	count         int
	windowSeconds float64
	currentRPS    float64
}

func newThroughputWindow(horizon time.Duration) *throughputWindow {
	return &throughputWindow{horizon: horizon, stamps: make([]time.Time, 0, 64)}
}

func (tw *throughputWindow) addAndSnapshot(now time.Time) throughputSnapshot {
	tw.stamps = append(tw.stamps, now)

	cutoff := now.Add(-tw.horizon)
	expired := 0
	for expired < len(tw.stamps) && tw.stamps[expired].Before(cutoff) {
		expired++
	}
	tw.stamps = slices.Delete(tw.stamps, 0, expired)

	span := now.Sub(tw.stamps[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	return throughputSnapshot{
		count:         len(tw.stamps),
		windowSeconds: span.Seconds(),
		currentRPS:    float64(len(tw.stamps)) / span.Seconds(),
	}
}

// resourceSampler derives CPU usage from the runtime's cumulative CPU
// classes between two samples.
type resourceSampler struct {
	mu        sync.Mutex
	cpu       []metrics.Sample
	lastTotal float64
	lastIdle  float64
	sampled   bool
}

func newResourceSampler() *resourceSampler {
	return &resourceSampler{
		cpu: []metrics.Sample{
			{Name: "/cpu/classes/total:cpu-seconds"},
			{Name: "/cpu/classes/idle:cpu-seconds"},
		},
	}
}

func (r *resourceSampler) sample() ResourceUsage {
	if r == nil {
		return ResourceUsage{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	usage := ResourceUsage{Goroutines: runtime.NumGoroutine()}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	usage.MemoryBytes = mem.Alloc

	if len(r.cpu) != 2 {
		return usage
	}
	metrics.Read(r.cpu)
	if r.cpu[0].Value.Kind() != metrics.KindFloat64 || r.cpu[1].Value.Kind() != metrics.KindFloat64 {
		return usage
	}

	total, idle := r.cpu[0].Value.Float64(), r.cpu[1].Value.Float64()
	if r.sampled {
		if available := total - r.lastTotal; available > 0 {
			busy := available - (idle - r.lastIdle)
			usage.CPUPercent = math.Max(0, busy/available*100)
		}
	}
	r.lastTotal, r.lastIdle, r.sampled = total, idle, true
	return usage
}
