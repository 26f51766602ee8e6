package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vitals-monitor/internal/anomaly"
	"vitals-monitor/internal/vitals"
)

// Alert is the record kept by the dispatcher for one anomaly event.
type Alert struct {
	ID           string           `json:"id"`
	SubjectID    string           `json:"subject_id,omitempty"`
	Kind         anomaly.Kind     `json:"kind"`
	Metric       vitals.Metric    `json:"metric"`
	Severity     anomaly.Severity `json:"severity"`
	Value        float64          `json:"value"`
	Baseline     *float64         `json:"baseline,omitempty"`
	Message      string           `json:"message"`
	Timestamp    time.Time        `json:"timestamp"`
	Acknowledged bool             `json:"acknowledged"`
}

// fromEvent builds an alert record for e.
func fromEvent(subjectID string, e anomaly.Event) Alert {
	a := Alert{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Kind:      e.Kind,
		Metric:    e.Metric,
		Severity:  e.Severity,
		Value:     e.Observed,
		Message:   message(e),
		Timestamp: e.Timestamp,
	}
	if e.Baseline != nil {
		b := *e.Baseline
		a.Baseline = &b
	}
	return a
}

func message(e anomaly.Event) string {
	unit := e.Metric.Unit()
	switch e.Kind {
	case anomaly.KindSpike:
		if e.Baseline != nil {
			return fmt.Sprintf("Sudden %s change: %.1f %s (recent mean %.1f %s)",
				e.Metric, e.Observed, unit, *e.Baseline, unit)
		}
		return fmt.Sprintf("Sudden %s change: %.1f %s", e.Metric, e.Observed, unit)
	case anomaly.KindSustainedOutOfRange:
		return fmt.Sprintf("Sustained out-of-range %s: %.1f %s", e.Metric, e.Observed, unit)
	default:
		return fmt.Sprintf("Anomalous %s reading: %.1f %s", e.Metric, e.Observed, unit)
	}
}
