package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"vitals-monitor/internal/health"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/vitals"
)

// Adapter picks between the live feed and the synthetic generator, one
// tick at a time.
type Adapter struct {
	live      Source
	synthetic *Synthetic
	timeout   time.Duration
	retry     RetryPolicy
	logger    *logs.Logger
	metrics   *metrics.Registry

	mu   sync.RWMutex
	mode Mode
}

// NewAdapter creates an adapter. live may be nil, in which case every
// tick is synthetic. fetchTimeout bounds each live attempt including
// retries.
func NewAdapter(
	live Source,
	synthetic *Synthetic,
	fetchTimeout time.Duration,
	logger *logs.Logger,
	reg *metrics.Registry,
) *Adapter {
	if synthetic == nil {
		synthetic = NewSynthetic(nil, nil)
	}
	retry := DefaultRetryPolicy()
	retry.Retryable = retryable
	return &Adapter{
		live:      live,
		synthetic: synthetic,
		timeout:   fetchTimeout,
		retry:     retry,
		logger:    logger,
		metrics:   reg,
		mode:      ModeSynthetic,
	}
}

// FetchSample returns the readings for this tick. It never fails: any
// live feed error is replaced by a synthetic sample set.
func (a *Adapter) FetchSample(ctx context.Context) vitals.SampleSet {
	if a.live == nil {
		return a.fallback()
	}

	start := time.Now()
	set, err := a.fetchLive(ctx)
	if err == nil {
		a.metrics.Inc(metrics.FetchLiveTotal)
		a.metrics.ObserveFetch(string(ModeLive), time.Since(start))
		a.setMode(ModeLive)
		return set
	}

	if ctx.Err() != nil {
		// The caller is shutting down and will discard the result.
		a.logger.Debug("live feed fetch cancelled", zap.Error(err))
		return a.fallback()
	}

	a.logger.Warn(health.FallbackLogMessage, zap.Error(err))
	a.metrics.Inc(metrics.FetchFallbackTotal)
	return a.fallback()
}

func (a *Adapter) fetchLive(ctx context.Context) (vitals.SampleSet, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var set vitals.SampleSet
	err := Retry(ctx, a.retry, func() error {
		var err error
		set, err = a.live.Fetch(ctx)
		return err
	})
	return set, err
}

func (a *Adapter) fallback() vitals.SampleSet {
	start := time.Now()
	set := a.synthetic.Generate()
	a.metrics.ObserveFetch(string(ModeSynthetic), time.Since(start))
	a.setMode(ModeSynthetic)
	return set
}

func (a *Adapter) setMode(m Mode) {
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()
}

// Mode reports the source of the most recent tick.
func (a *Adapter) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// retryable reports whether another attempt could help within the same tick.
func retryable(err error) bool {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.Is(err, ErrMalformedPayload),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
