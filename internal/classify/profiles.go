package classify

import "vitals-monitor/internal/vitals"

// Status is the tier a reading falls into.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Profile holds the static ranges of one metric.
// Critical is informational; anything outside Warning is critical.
type Profile struct {
	Normal   Range `json:"normal"`
	Warning  Range `json:"warning"`
	Critical Range `json:"critical"`
}

var profiles = map[vitals.Metric]Profile{
	vitals.HeartRate: {
		Normal:   Range{60, 100},
		Warning:  Range{50, 120},
		Critical: Range{40, 140},
	},
	vitals.Oxygen: {
		Normal:   Range{95, 100},
		Warning:  Range{90, 95},
		Critical: Range{0, 90},
	},
	vitals.SystolicBP: {
		Normal:   Range{90, 140},
		Warning:  Range{80, 160},
		Critical: Range{0, 180},
	},
	vitals.DiastolicBP: {
		Normal:   Range{60, 90},
		Warning:  Range{50, 100},
		Critical: Range{40, 120},
	},
	vitals.BodyTemp: {
		Normal:   Range{97.0, 99.5},
		Warning:  Range{96.0, 100.5},
		Critical: Range{95.0, 102.0},
	},
}

// ProfileFor returns the threshold profile of metric.
func ProfileFor(metric vitals.Metric) (Profile, bool) {
	p, ok := profiles[metric]
	return p, ok
}

// Classify maps a raw value onto a status tier.
//
// The normal range is tested first, then the warning range; everything
// else, including metrics without a profile, is critical.
func Classify(metric vitals.Metric, value float64) Status {
	p, ok := profiles[metric]
	if !ok {
		return StatusCritical
	}

	switch {
	case p.Normal.Contains(value):
		return StatusNormal
	case p.Warning.Contains(value):
		return StatusWarning
	default:
		return StatusCritical
	}
}
