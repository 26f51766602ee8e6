package health

import (
	"math"
	"strings"
	"time"

	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/vitals"
)

const (
	minHeartRateSamples = 10
	heartRateWindow     = 20
	oxygenWindow        = 10

	lowVariability  = 2.0
	highVariability = 10.0

	// fallbackSignalThreshold is how many recent feed failures in the log
	// turn into a synthetic-data signal.
	fallbackSignalThreshold = 3
)

// FallbackLogMessage is the message the ingestion adapter logs when the
// live feed fails and synthetic data is used instead.
const FallbackLogMessage = "live feed fetch failed, using synthetic sample"

// Reader is the read side of the history buffer.
type Reader interface {
	Len(metric vitals.Metric) int
	Values(metric vitals.Metric, k int) []float64
}

// Analyzer converts buffered history into a health assessment.
type Analyzer struct {
	logger *logs.Logger
	rules  []Rule
	now    func() time.Time
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(logger *logs.Logger) *Analyzer {
	return &Analyzer{
		logger: logger,
		rules: []Rule{
			HeartRateRangeRule,
			OxygenLowRule,
		},
		now: time.Now,
	}
}

// Analyze scores the current history.
// It returns false until the heart-rate series holds at least 10 samples.
func (a *Analyzer) Analyze(r Reader) (Assessment, bool) {
	if r.Len(vitals.HeartRate) < minHeartRateSamples {
		return Assessment{}, false
	}

	w := Window{
		HeartRate: r.Values(vitals.HeartRate, heartRateWindow),
		Oxygen:    r.Values(vitals.Oxygen, oxygenWindow),
	}

	hrv := successiveDifferenceMean(w.HeartRate)

	var (
		signals = []string{}
		score   = MaxScore
	)

	/* ---------- VALUE-BASED RULES ---------- */

	for _, rule := range a.rules {
		result := rule(w)
		if !result.Triggered {
			continue
		}
		signals = append(signals, result.Signal)
		score -= result.Penalty
	}

	/* ---------- LOG-BASED SIGNALS ---------- */

	if a.logger != nil {
		fallbacks := 0
		for _, entry := range a.logger.GetLast(100) {
			if entry.Level == logs.WARN && strings.Contains(entry.Message, FallbackLogMessage) {
				fallbacks++
			}
		}
		if fallbacks >= fallbackSignalThreshold {
			signals = append(signals, "Live feed unavailable, readings are synthetic")
		}
	}

	return Assessment{
		Variability: classifyVariability(hrv),
		HRV:         hrv,
		Score:       clampScore(score),
		Signals:     signals,
		AssessedAt:  a.now(),
	}, true
}

// successiveDifferenceMean averages |x[i] - x[i-1]|.
func successiveDifferenceMean(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(values); i++ {
		sum += math.Abs(values[i] - values[i-1])
	}
	return sum / float64(len(values)-1)
}

func classifyVariability(hrv float64) Variability {
	switch {
	case hrv < lowVariability:
		return VariabilityLow
	case hrv > highVariability:
		return VariabilityHigh
	default:
		return VariabilityGood
	}
}

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
