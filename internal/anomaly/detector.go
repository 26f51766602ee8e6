package anomaly

import (
	"fmt"

	"go.uber.org/zap"

	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/vitals"
)

// MinHistory is the series length a rule needs before it runs.
const MinHistory = 10

// Reader is the read side of the history buffer.
type Reader interface {
	Len(metric vitals.Metric) int
	Window(metric vitals.Metric, k int) []vitals.Sample
}

// Detector runs every rule against the buffer, each in isolation.
type Detector struct {
	rules   []Rule
	logger  *logs.Logger
	metrics *metrics.Registry
}

// NewDetector creates a detector. With no rules it uses DefaultRules.
func NewDetector(
	logger *logs.Logger,
	reg *metrics.Registry,
	rules ...Rule,
) *Detector {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Detector{
		rules:   rules,
		logger:  logger,
		metrics: reg,
	}
}

// Detect evaluates all rules and returns the events they produced.
// A failing rule is logged and skipped; the others still run.
func (d *Detector) Detect(r Reader) []Event {
	events := []Event{}

	for _, rule := range d.rules {
		if r.Len(rule.Metric) < MinHistory {
			continue
		}

		event, ok, err := d.run(rule, r)
		if err != nil {
			d.metrics.Inc(metrics.DetectorFaultsTotal)
			d.logger.Warn("detector rule failed",
				zap.String("rule", rule.Name),
				zap.String("metric", string(rule.Metric)),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		d.metrics.Inc(metrics.AnomaliesDetectedTotal)
		events = append(events, event)
	}

	return events
}

// run evaluates one rule, turning a panic into an error.
func (d *Detector) run(rule Rule, r Reader) (event Event, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			event, ok, err = Event{}, false, fmt.Errorf("panic: %v", rec)
		}
	}()

	return rule.Evaluate(r.Window(rule.Metric, rule.Window))
}
