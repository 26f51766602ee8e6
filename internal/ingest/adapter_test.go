package ingest

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"vitals-monitor/internal/health"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/vitals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ---------------- Stub Source ---------------- */

type stubSource struct {
	calls atomic.Int32
	fetch func(ctx context.Context, call int) (vitals.SampleSet, error)
}

func (s *stubSource) Fetch(ctx context.Context) (vitals.SampleSet, error) {
	n := int(s.calls.Add(1))
	return s.fetch(ctx, n)
}

func liveSet(hr float64) vitals.SampleSet {
	return vitals.SampleSet{
		vitals.HeartRate: {Metric: vitals.HeartRate, Value: hr, Timestamp: fixed, Source: vitals.SourceLive},
	}
}

func newTestAdapter(live Source, timeout time.Duration) (*Adapter, *metrics.Registry, *logs.Logger) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(50, logs.DEBUG)
	synth := NewSynthetic(func() time.Time { return fixed }, rand.New(rand.NewSource(1)))
	return NewAdapter(live, synth, timeout, logger, reg), reg, logger
}

/* ---------------- Tests ---------------- */

func TestAdapter_LiveSuccess(t *testing.T) {
	src := &stubSource{fetch: func(context.Context, int) (vitals.SampleSet, error) { return liveSet(88), nil }}
	a, reg, _ := newTestAdapter(src, time.Second)

	set := a.FetchSample(context.Background())

	require.Len(t, set, 1)
	assert.Equal(t, 88.0, set[vitals.HeartRate].Value)
	assert.Equal(t, ModeLive, a.Mode())
	assert.Equal(t, int64(1), reg.Value(metrics.FetchLiveTotal))
	assert.Equal(t, int64(0), reg.Value(metrics.FetchFallbackTotal))
}

func TestAdapter_FallsBackOnFailure(t *testing.T) {
	src := &stubSource{fetch: func(context.Context, int) (vitals.SampleSet, error) {
		return nil, ErrBadStatus
	}}
	a, reg, logger := newTestAdapter(src, time.Second)

	set := a.FetchSample(context.Background())

	assert.Len(t, set, len(vitals.All))
	assert.Equal(t, vitals.SourceSynthetic, set[vitals.HeartRate].Source)
	assert.Equal(t, ModeSynthetic, a.Mode())
	assert.Equal(t, int64(1), reg.Value(metrics.FetchFallbackTotal))

	entries := logger.GetLast(10)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, logs.WARN, last.Level)
	assert.Equal(t, health.FallbackLogMessage, last.Message)
}

func TestAdapter_RetriesWithinDeadline(t *testing.T) {
	src := &stubSource{fetch: func(_ context.Context, call int) (vitals.SampleSet, error) {
		if call == 1 {
			return nil, errors.New("connection reset")
		}
		return liveSet(75), nil
	}}
	a, _, _ := newTestAdapter(src, time.Second)

	set := a.FetchSample(context.Background())

	assert.Equal(t, 75.0, set[vitals.HeartRate].Value)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestAdapter_MalformedIsNotRetried(t *testing.T) {
	src := &stubSource{fetch: func(context.Context, int) (vitals.SampleSet, error) {
		return nil, ErrMalformedPayload
	}}
	a, _, _ := newTestAdapter(src, time.Second)

	a.FetchSample(context.Background())

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestAdapter_SlowFeedDoesNotStall(t *testing.T) {
	src := &stubSource{fetch: func(ctx context.Context, _ int) (vitals.SampleSet, error) {
		select {
		case <-time.After(2 * time.Second):
			return liveSet(70), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	a, reg, _ := newTestAdapter(src, 20*time.Millisecond)

	start := time.Now()
	set := a.FetchSample(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, vitals.SourceSynthetic, set[vitals.HeartRate].Source)
	assert.Equal(t, int64(1), reg.Value(metrics.FetchFallbackTotal))
}

func TestAdapter_NoLiveSource(t *testing.T) {
	a, reg, logger := newTestAdapter(nil, time.Second)

	set := a.FetchSample(context.Background())

	assert.Len(t, set, len(vitals.All))
	assert.Equal(t, ModeSynthetic, a.Mode())
	assert.Equal(t, int64(0), reg.Value(metrics.FetchFallbackTotal))
	assert.Empty(t, logger.GetLast(10))
}

func TestAdapter_CancelledContextSkipsWarning(t *testing.T) {
	src := &stubSource{fetch: func(ctx context.Context, _ int) (vitals.SampleSet, error) {
		return nil, ctx.Err()
	}}
	a, reg, logger := newTestAdapter(src, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.FetchSample(ctx)

	assert.Equal(t, int64(0), reg.Value(metrics.FetchFallbackTotal))
	for _, e := range logger.GetLast(10) {
		assert.NotEqual(t, logs.WARN, e.Level)
	}
}
