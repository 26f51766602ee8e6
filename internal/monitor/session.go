package monitor

import (
	"time"

	"vitals-monitor/internal/alerts"
	"vitals-monitor/internal/classify"
	"vitals-monitor/internal/health"
	"vitals-monitor/internal/ingest"
	"vitals-monitor/internal/vitals"
)

const (
	DefaultSamplingInterval = 2 * time.Second
	DefaultAnalysisInterval = 5 * time.Second
	DefaultChartWindow      = 20
)

// Session describes the monitoring lifecycle.
type Session struct {
	SubjectID          string     `json:"subject_id,omitempty"`
	Active             bool       `json:"is_active"`
	SamplingIntervalMs int64      `json:"sampling_interval_ms"`
	AnalysisIntervalMs int64      `json:"analysis_interval_ms"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
}

// Reading is the published view of one metric after a sampling tick.
type Reading struct {
	Value     float64         `json:"value"`
	Unit      string          `json:"unit"`
	Status    classify.Status `json:"status"`
	Source    vitals.Source   `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// Snapshot bundles everything a presentation layer needs in one read.
type Snapshot struct {
	Session  Session                   `json:"session"`
	FeedMode ingest.Mode               `json:"feed_mode"`
	Vitals   map[vitals.Metric]Reading `json:"vitals"`
	Health   *health.Assessment        `json:"health,omitempty"`
	Alerts   []alerts.Alert            `json:"alerts"`
	TakenAt  time.Time                 `json:"taken_at"`
}
