package health

import "time"

// Variability is the coarse heart-rate variability class.
type Variability string

const (
	VariabilityLow  Variability = "low"
	VariabilityGood Variability = "good"
	VariabilityHigh Variability = "high"
)

// Score bounds. The floor of 70 is intentional: lower scores are unreachable.
const (
	MaxScore = 100
	MinScore = 70
)

// Assessment is the result of one analysis tick.
type Assessment struct {
	Variability Variability `json:"variability"`
	HRV         float64     `json:"hrv"`
	Score       int         `json:"aggregate_score"`
	Signals     []string    `json:"signals"`
	AssessedAt  time.Time   `json:"assessed_at"`
}
