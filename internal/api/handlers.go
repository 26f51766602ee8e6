package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"vitals-monitor/internal/alerts"
	"vitals-monitor/internal/classify"
	"vitals-monitor/internal/health"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/monitor"
	"vitals-monitor/internal/vitals"
)

const defaultLogLines = 50

// Engine is the query and lifecycle surface the API serves.
type Engine interface {
	Start()
	Stop()
	Session() monitor.Session
	CurrentVitals() map[vitals.Metric]float64
	StatusOf(metric vitals.Metric) (classify.Status, bool)
	SeriesWindow(metric vitals.Metric, k int) []vitals.Sample
	HealthAssessment() (health.Assessment, bool)
	CurrentAlerts() []alerts.Alert
	AcknowledgeAlert(id string) bool
	Snapshot() monitor.Snapshot
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine      Engine
	metrics     *metrics.Registry
	logger      *logs.Logger
	chartWindow int
}

// NewHandler creates a new API handler.
func NewHandler(
	engine Engine,
	metrics *metrics.Registry,
	logger *logs.Logger,
	chartWindow int,
) *Handler {
	if chartWindow < 1 {
		chartWindow = monitor.DefaultChartWindow
	}
	return &Handler{
		engine:      engine,
		metrics:     metrics,
		logger:      logger,
		chartWindow: chartWindow,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// metricFromPath resolves {metric}; it writes a 404 and returns false for
// unknown metrics.
func metricFromPath(w http.ResponseWriter, r *http.Request) (vitals.Metric, bool) {
	m := vitals.Metric(mux.Vars(r)["metric"])
	if !m.Valid() {
		http.Error(w, "unknown metric", http.StatusNotFound)
		return "", false
	}
	return m, true
}

// positiveQueryInt reads an optional positive integer query parameter.
func positiveQueryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

/* ---------------- POST /monitor/start ---------------- */

func (h *Handler) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	h.engine.Start()
	w.WriteHeader(http.StatusNoContent)
}

/* ---------------- POST /monitor/stop ---------------- */

func (h *Handler) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	w.WriteHeader(http.StatusNoContent)
}

/* ---------------- GET /monitor/session ---------------- */

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Session())
}

/* ---------------- GET /vitals ---------------- */

func (h *Handler) GetVitals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CurrentVitals())
}

/* ---------------- GET /vitals/{metric}/status ---------------- */

type statusResponse struct {
	Metric vitals.Metric   `json:"metric"`
	Status classify.Status `json:"status"`
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	m, ok := metricFromPath(w, r)
	if !ok {
		return
	}

	status, ok := h.engine.StatusOf(m)
	if !ok {
		http.Error(w, "no reading for metric yet", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Metric: m, Status: status})
}

/* ---------------- GET /vitals/{metric}/window ---------------- */

func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	m, ok := metricFromPath(w, r)
	if !ok {
		return
	}

	since, hasSince, ok := sinceQuery(r)
	if !ok {
		http.Error(w, "since must be a duration or an RFC 3339 timestamp", http.StatusBadRequest)
		return
	}

	def := h.chartWindow
	if hasSince {
		def = math.MaxInt
	}
	k, ok := positiveQueryInt(r, "k", def)
	if !ok {
		http.Error(w, "k must be a positive integer", http.StatusBadRequest)
		return
	}

	window := h.engine.SeriesWindow(m, k)
	if hasSince {
		window = samplesSince(window, since)
	}
	writeJSON(w, http.StatusOK, window)
}

// sinceQuery reads ?since= as either a lookback duration ("2h") or an
// absolute RFC 3339 timestamp.
func sinceQuery(r *http.Request) (time.Time, bool, bool) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, false, true
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return time.Now().Add(-d), true, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, false
	}
	return t, true, true
}

// samplesSince keeps samples taken at or after cutoff. Input is oldest first.
func samplesSince(samples []vitals.Sample, cutoff time.Time) []vitals.Sample {
	for i, s := range samples {
		if !s.Timestamp.Before(cutoff) {
			return samples[i:]
		}
	}
	return []vitals.Sample{}
}

/* ---------------- GET /health ---------------- */

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	a, ok := h.engine.HealthAssessment()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

/* ---------------- GET /alerts ---------------- */

func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CurrentAlerts())
}

/* ---------------- POST /alerts/{id}/ack ---------------- */

func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.engine.AcknowledgeAlert(id) {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---------------- GET /snapshot ---------------- */

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

/* ---------------- GET /admin/logs ---------------- */

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	n, ok := positiveQueryInt(r, "n", defaultLogLines)
	if !ok {
		http.Error(w, "n must be a positive integer", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.logger.GetLast(n))
}
