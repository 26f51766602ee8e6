package anomaly

import (
	"time"

	"vitals-monitor/internal/vitals"
)

// Kind is the family of detector that produced an event.
type Kind string

const (
	KindSpike               Kind = "spike"
	KindSustainedOutOfRange Kind = "sustained_out_of_range"
)

// Severity grades an event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is a transient detection result handed to the alert dispatcher.
type Event struct {
	Kind      Kind          `json:"kind"`
	Metric    vitals.Metric `json:"metric"`
	Severity  Severity      `json:"severity"`
	Observed  float64       `json:"observed_value"`
	Baseline  *float64      `json:"baseline_value,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
