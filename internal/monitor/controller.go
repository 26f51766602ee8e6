// Package monitor owns the monitoring lifecycle and the two periodic
// cycles that drive ingestion and analysis.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"vitals-monitor/internal/alerts"
	"vitals-monitor/internal/anomaly"
	"vitals-monitor/internal/classify"
	"vitals-monitor/internal/health"
	"vitals-monitor/internal/history"
	"vitals-monitor/internal/ingest"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/vitals"
)

// Fetcher produces one sample set per sampling tick.
type Fetcher interface {
	FetchSample(ctx context.Context) vitals.SampleSet
	Mode() ingest.Mode
}

// Config holds the controller's timing.
type Config struct {
	SubjectID        string
	SamplingInterval time.Duration
	AnalysisInterval time.Duration
}

// Controller drives the engine. Only the sampling cycle writes the buffer.
type Controller struct {
	cfg        Config
	buffer     *history.Buffer
	fetcher    Fetcher
	detector   *anomaly.Detector
	analyzer   *health.Analyzer
	dispatcher *alerts.Dispatcher
	logger     *logs.Logger
	metrics    *metrics.Registry

	// lifecycle guards cancel, wg and active transitions
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// tick serializes sampling and analysis ticks
	tick sync.Mutex

	mu         sync.RWMutex
	active     bool
	startedAt  time.Time
	readings   map[vitals.Metric]Reading
	assessment *health.Assessment
}

// NewController wires the engine components together.
func NewController(
	cfg Config,
	buffer *history.Buffer,
	fetcher Fetcher,
	detector *anomaly.Detector,
	analyzer *health.Analyzer,
	dispatcher *alerts.Dispatcher,
	logger *logs.Logger,
	reg *metrics.Registry,
) *Controller {
	if cfg.SamplingInterval <= 0 {
		cfg.SamplingInterval = DefaultSamplingInterval
	}
	if cfg.AnalysisInterval <= 0 {
		cfg.AnalysisInterval = DefaultAnalysisInterval
	}
	return &Controller{
		cfg:        cfg,
		buffer:     buffer,
		fetcher:    fetcher,
		detector:   detector,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    reg,
		readings:   make(map[vitals.Metric]Reading),
	}
}

// Start begins both cycles. It is a no-op while already active.
func (c *Controller) Start() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.IsActive() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	sampling := NewCycle("sampling", c.cfg.SamplingInterval, c.sampleTick, c.logger)
	analysis := NewCycle("analysis", c.cfg.AnalysisInterval, c.analysisTick, c.logger)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		sampling.Start(ctx)
	}()
	go func() {
		defer c.wg.Done()
		analysis.Start(ctx)
	}()

	c.mu.Lock()
	c.active = true
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.metrics.SetActive(true)
	c.logger.Info("monitoring started",
		zap.String("subject_id", c.cfg.SubjectID),
		zap.Duration("sampling_interval", c.cfg.SamplingInterval),
		zap.Duration("analysis_interval", c.cfg.AnalysisInterval),
	)
}

// Stop cancels both cycles and waits for them to exit. Once Stop returns
// no further buffer writes or alerts occur. It is a no-op while inactive.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if !c.IsActive() {
		return
	}

	c.cancel()
	c.wg.Wait()
	c.cancel = nil
	c.dispatcher.Flush()

	c.mu.Lock()
	c.active = false
	c.startedAt = time.Time{}
	c.mu.Unlock()

	c.metrics.SetActive(false)
	c.logger.Info("monitoring stopped", zap.String("subject_id", c.cfg.SubjectID))
}

func (c *Controller) sampleTick(ctx context.Context) {
	c.SampleOnce(ctx)
}

func (c *Controller) analysisTick(ctx context.Context) {
	c.AnalyzeOnce(ctx)
}

// SampleOnce runs a single sampling tick: fetch, append, classify and
// publish. It returns how many samples were recorded. A result that
// arrives after ctx is cancelled is discarded.
func (c *Controller) SampleOnce(ctx context.Context) int {
	set := c.fetcher.FetchSample(ctx)

	c.tick.Lock()
	defer c.tick.Unlock()

	if ctx.Err() != nil {
		c.metrics.Inc(metrics.FetchDiscardedTotal)
		c.logger.Debug("discarding sample set fetched after stop")
		return 0
	}

	published := make(map[vitals.Metric]Reading, len(set))
	for _, m := range vitals.All {
		s, ok := set[m]
		if !ok {
			continue
		}
		if err := c.buffer.Append(s); err != nil {
			c.logger.Warn("sample rejected",
				zap.String("metric", string(m)),
				zap.Time("timestamp", s.Timestamp),
				zap.Error(err),
			)
			continue
		}
		published[m] = Reading{
			Value:     s.Value,
			Unit:      m.Unit(),
			Status:    classify.Classify(m, s.Value),
			Source:    s.Source,
			Timestamp: s.Timestamp,
		}
		c.metrics.SetLatest(string(m), s.Value)
	}

	c.mu.Lock()
	next := make(map[vitals.Metric]Reading, len(c.readings)+len(published))
	for m, r := range c.readings {
		next[m] = r
	}
	for m, r := range published {
		next[m] = r
	}
	c.readings = next
	c.mu.Unlock()

	c.metrics.Inc(metrics.SamplingRunsTotal)
	return len(published)
}

// AnalyzeOnce runs a single analysis tick: detect, assess and dispatch.
func (c *Controller) AnalyzeOnce(ctx context.Context) {
	c.tick.Lock()
	defer c.tick.Unlock()

	if ctx.Err() != nil {
		return
	}

	events := c.detector.Detect(c.buffer)

	if a, ok := c.analyzer.Analyze(c.buffer); ok {
		c.mu.Lock()
		c.assessment = &a
		c.mu.Unlock()
		c.metrics.SetHealthScore(a.Score)
	}

	c.dispatcher.Dispatch(ctx, events)
	c.metrics.Inc(metrics.AnalysisRunsTotal)
}

/* ---------- QUERIES ---------- */

// IsActive reports whether the session is running.
func (c *Controller) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Session returns the current session state.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Session{
		SubjectID:          c.cfg.SubjectID,
		Active:             c.active,
		SamplingIntervalMs: c.cfg.SamplingInterval.Milliseconds(),
		AnalysisIntervalMs: c.cfg.AnalysisInterval.Milliseconds(),
	}
	if c.active {
		started := c.startedAt
		s.StartedAt = &started
	}
	return s
}

// CurrentVitals maps every recorded metric to its latest value.
func (c *Controller) CurrentVitals() map[vitals.Metric]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[vitals.Metric]float64, len(c.readings))
	for m, r := range c.readings {
		out[m] = r.Value
	}
	return out
}

// StatusOf classifies the latest reading of metric. It reports false
// while the metric has no reading.
func (c *Controller) StatusOf(metric vitals.Metric) (classify.Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.readings[metric]
	if !ok {
		return "", false
	}
	return r.Status, true
}

// SeriesWindow returns the last k samples of metric, oldest first.
func (c *Controller) SeriesWindow(metric vitals.Metric, k int) []vitals.Sample {
	return c.buffer.Window(metric, k)
}

// HealthAssessment returns the most recent assessment, if any.
func (c *Controller) HealthAssessment() (health.Assessment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.assessment == nil {
		return health.Assessment{}, false
	}
	return *c.assessment, true
}

// CurrentAlerts returns the queued alerts, most recent last.
func (c *Controller) CurrentAlerts() []alerts.Alert {
	return c.dispatcher.Current()
}

// AcknowledgeAlert marks an alert as seen.
func (c *Controller) AcknowledgeAlert(id string) bool {
	return c.dispatcher.Acknowledge(id)
}

// Snapshot gathers the published state in one value.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Session:  c.Session(),
		FeedMode: c.fetcher.Mode(),
		Alerts:   c.CurrentAlerts(),
		TakenAt:  time.Now(),
	}

	c.mu.RLock()
	snap.Vitals = make(map[vitals.Metric]Reading, len(c.readings))
	for m, r := range c.readings {
		snap.Vitals[m] = r
	}
	if c.assessment != nil {
		a := *c.assessment
		snap.Health = &a
	}
	c.mu.RUnlock()

	return snap
}
