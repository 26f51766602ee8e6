package history

import (
	"errors"
	"fmt"
	"sync"

	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/vitals"
)

// DefaultCapacity is the number of samples kept per metric.
const DefaultCapacity = 100

// ErrOutOfOrder is returned when a sample is older than the series' latest.
var ErrOutOfOrder = errors.New("sample older than latest in series")

// Buffer is a bounded, append-only history of samples per metric.
//
// Design principles:
// - One writer (the sampling cycle) appends; any number of readers.
// - Each series keeps insertion order, which is also time order.
// - Past capacity the oldest sample is evicted (FIFO).
type Buffer struct {
	mu       sync.RWMutex
	series   map[vitals.Metric][]vitals.Sample
	capacity int
	metrics  *metrics.Registry
}

// NewBuffer initializes an empty buffer holding up to capacity samples per metric.
func NewBuffer(capacity int, metricsRegistry *metrics.Registry) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		series:   make(map[vitals.Metric][]vitals.Sample),
		capacity: capacity,
		metrics:  metricsRegistry,
	}
}

// Capacity returns the per-metric capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Append records a sample at the end of its metric's series.
//
// Rules:
// - A sample older than the latest one of its series is rejected.
// - When the series is full the oldest sample is evicted first.
func (b *Buffer) Append(sample vitals.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.series[sample.Metric]
	if n := len(s); n > 0 && sample.Timestamp.Before(s[n-1].Timestamp) {
		b.metrics.Inc(metrics.SamplesRejectedTotal)
		return fmt.Errorf("append %s: %w", sample.Metric, ErrOutOfOrder)
	}

	if len(s) >= b.capacity {
		// shift rather than reslice so the backing array stays bounded
		copy(s, s[1:])
		s = s[:len(s)-1]
		b.metrics.Inc(metrics.SamplesEvictedTotal)
	}

	b.series[sample.Metric] = append(s, sample)
	b.metrics.Inc(metrics.SamplesRecordedTotal)
	return nil
}

// Window returns the most recent min(k, len) samples of metric, oldest first.
// The returned slice is owned by the caller.
func (b *Buffer) Window(metric vitals.Metric, k int) []vitals.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.series[metric]
	if k > len(s) {
		k = len(s)
	}
	if k <= 0 {
		return []vitals.Sample{}
	}

	out := make([]vitals.Sample, k)
	copy(out, s[len(s)-k:])
	return out
}

// Values is Window projected onto the sample values.
func (b *Buffer) Values(metric vitals.Metric, k int) []float64 {
	window := b.Window(metric, k)
	out := make([]float64, len(window))
	for i, s := range window {
		out[i] = s.Value
	}
	return out
}

// Len returns the number of samples held for metric.
func (b *Buffer) Len(metric vitals.Metric) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.series[metric])
}

// Latest returns the newest sample of metric.
func (b *Buffer) Latest(metric vitals.Metric) (vitals.Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.series[metric]
	if len(s) == 0 {
		return vitals.Sample{}, false
	}
	return s[len(s)-1], true
}
