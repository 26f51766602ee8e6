package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys (centralized)
const (
	// History
	SamplesRecordedTotal MetricKey = "samples_recorded_total"
	SamplesEvictedTotal  MetricKey = "samples_evicted_total"
	SamplesRejectedTotal MetricKey = "samples_rejected_total"

	// Ingestion
	FetchLiveTotal      MetricKey = "fetch_live_total"
	FetchFallbackTotal  MetricKey = "fetch_fallback_total"
	FetchDiscardedTotal MetricKey = "fetch_discarded_total"

	// Cycles
	SamplingRunsTotal MetricKey = "sampling_runs_total"
	AnalysisRunsTotal MetricKey = "analysis_runs_total"

	// Detection
	AnomaliesDetectedTotal MetricKey = "anomalies_detected_total"
	DetectorFaultsTotal    MetricKey = "detector_faults_total"

	// Alerts
	AlertsDispatchedTotal     MetricKey = "alerts_dispatched_total"
	AlertsDroppedTotal        MetricKey = "alerts_dropped_total"
	AlertPublishFailuresTotal MetricKey = "alert_publish_failures_total"
)

const namespace = "vitals"

// Registry stores all metrics.
//
// Counters are kept as atomics for Snapshot and mirrored into a private
// prometheus registry served by Handler.
type Registry struct {
	mu       sync.RWMutex
	counters map[MetricKey]*int64

	prom          *prometheus.Registry
	events        *prometheus.CounterVec
	latest        *prometheus.GaugeVec
	healthScore   prometheus.Gauge
	alertQueue    prometheus.Gauge
	active        prometheus.Gauge
	fetchDuration *prometheus.HistogramVec
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	r := &Registry{
		counters: make(map[MetricKey]*int64),
		prom:     prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Engine events by kind.",
		}, []string{"event"}),
		latest: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latest_value",
			Help:      "Most recent reading per metric.",
		}, []string{"metric"}),
		healthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_score",
			Help:      "Aggregate wellness score of the last assessment.",
		}),
		alertQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_queue_length",
			Help:      "Alerts currently held by the dispatcher.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_active",
			Help:      "1 while the monitoring session is active.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent producing one sample set.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"source"}),
	}

	r.prom.MustRegister(r.events, r.latest, r.healthScore, r.alertQueue, r.active, r.fetchDuration)
	return r
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Add increments a metric by delta.
// Negative deltas only affect Snapshot; prometheus counters never go down.
func (r *Registry) Add(key MetricKey, delta int64) {
	if delta > 0 {
		r.events.WithLabelValues(string(key)).Add(float64(delta))
	}

	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()

	if ok {
		atomic.AddInt64(ptr, delta)
		return
	}

	// Slow path: metric not yet initialized
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if ptr, ok = r.counters[key]; ok {
		atomic.AddInt64(ptr, delta)
		return
	}

	var val int64
	r.counters[key] = &val
	atomic.AddInt64(&val, delta)
}

// SetLatest records the newest reading of a metric.
func (r *Registry) SetLatest(metric string, value float64) {
	r.latest.WithLabelValues(metric).Set(value)
}

// SetHealthScore records the newest aggregate score.
func (r *Registry) SetHealthScore(score int) {
	r.healthScore.Set(float64(score))
}

// SetAlertQueueLength records how many alerts the dispatcher holds.
func (r *Registry) SetAlertQueueLength(n int) {
	r.alertQueue.Set(float64(n))
}

// SetActive flips the session gauge.
func (r *Registry) SetActive(active bool) {
	if active {
		r.active.Set(1)
		return
	}
	r.active.Set(0)
}

// ObserveFetch records how long one fetch took for the given source.
func (r *Registry) ObserveFetch(source string, d time.Duration) {
	r.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// Handler serves the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}
