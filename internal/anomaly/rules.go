package anomaly

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"vitals-monitor/internal/vitals"
)

// Rule evaluates the recent window of one metric.
type Rule struct {
	Name   string
	Metric vitals.Metric
	// Window is how many recent samples Evaluate receives.
	Window int
	// Evaluate returns an event and true when the window is anomalous.
	Evaluate func(window []vitals.Sample) (Event, bool, error)
}

var errShortWindow = errors.New("window shorter than rule requires")

// ---------- RULES ----------

const (
	spikeWindow    = 5
	spikeThreshold = 20.0

	sustainedWindow = 3
	oxygenFloor     = 95.0
)

// SpikeRule flags a heart rate that jumps more than 20 bpm away from the
// mean of the four readings before it.
func SpikeRule() Rule {
	return Rule{
		Name:   "heart_rate_spike",
		Metric: vitals.HeartRate,
		Window: spikeWindow,
		Evaluate: func(window []vitals.Sample) (Event, bool, error) {
			if len(window) < spikeWindow {
				return Event{}, false, errShortWindow
			}

			prior := make([]float64, 0, spikeWindow-1)
			for _, s := range window[:spikeWindow-1] {
				prior = append(prior, s.Value)
			}
			mean, err := stats.Mean(prior)
			if err != nil {
				return Event{}, false, err
			}

			latest := window[spikeWindow-1]
			if math.Abs(latest.Value-mean) <= spikeThreshold {
				return Event{}, false, nil
			}

			return Event{
				Kind:      KindSpike,
				Metric:    vitals.HeartRate,
				Severity:  SeverityMedium,
				Observed:  latest.Value,
				Baseline:  &mean,
				Timestamp: latest.Timestamp,
			}, true, nil
		},
	}
}

// SustainedLowOxygenRule flags three consecutive oxygen readings below 95%.
func SustainedLowOxygenRule() Rule {
	return Rule{
		Name:   "oxygen_sustained_low",
		Metric: vitals.Oxygen,
		Window: sustainedWindow,
		Evaluate: func(window []vitals.Sample) (Event, bool, error) {
			if len(window) < sustainedWindow {
				return Event{}, false, errShortWindow
			}

			for _, s := range window {
				if s.Value >= oxygenFloor {
					return Event{}, false, nil
				}
			}

			latest := window[len(window)-1]
			return Event{
				Kind:      KindSustainedOutOfRange,
				Metric:    vitals.Oxygen,
				Severity:  SeverityHigh,
				Observed:  latest.Value,
				Timestamp: latest.Timestamp,
			}, true, nil
		},
	}
}

// DefaultRules returns the detector families run on every analysis tick.
func DefaultRules() []Rule {
	return []Rule{
		SpikeRule(),
		SustainedLowOxygenRule(),
	}
}
