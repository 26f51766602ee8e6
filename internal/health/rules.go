package health

import "github.com/montanaflynn/stats"

// Window holds the recent values a rule scores.
type Window struct {
	HeartRate []float64
	Oxygen    []float64
}

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered bool
	Signal    string
	Penalty   int
}

// Rule scores a window.
type Rule func(w Window) RuleResult

// ---------- RULES ----------

// Mean heart rate outside the resting range costs 10 points.
func HeartRateRangeRule(w Window) RuleResult {
	mean, err := stats.Mean(w.HeartRate)
	if err != nil {
		return RuleResult{}
	}

	if mean < 60 || mean > 100 {
		return RuleResult{
			Triggered: true,
			Signal:    "Mean heart rate outside 60-100 bpm",
			Penalty:   10,
		}
	}
	return RuleResult{}
}

// Mean oxygen saturation below 95% costs 15 points.
func OxygenLowRule(w Window) RuleResult {
	mean, err := stats.Mean(w.Oxygen)
	if err != nil {
		return RuleResult{}
	}

	if mean < 95 {
		return RuleResult{
			Triggered: true,
			Signal:    "Mean oxygen saturation below 95%",
			Penalty:   15,
		}
	}
	return RuleResult{}
}
