package vitals

import "time"

// Metric identifies a physiological measurement.
// Values match the field names of the live feed payload.
type Metric string

const (
	HeartRate   Metric = "heart_rate"
	Oxygen      Metric = "oxygen_level"
	SystolicBP  Metric = "blood_pressure_systolic"
	DiastolicBP Metric = "blood_pressure_diastolic"
	BodyTemp    Metric = "body_temperature"
)

// All lists every metric in display order.
var All = []Metric{HeartRate, Oxygen, SystolicBP, DiastolicBP, BodyTemp}

// Valid reports whether m is one of the known metrics.
func (m Metric) Valid() bool {
	for _, known := range All {
		if m == known {
			return true
		}
	}
	return false
}

// Unit returns the display unit of the metric.
func (m Metric) Unit() string {
	switch m {
	case HeartRate:
		return "bpm"
	case Oxygen:
		return "%"
	case SystolicBP, DiastolicBP:
		return "mmHg"
	case BodyTemp:
		return "°F"
	default:
		return ""
	}
}

// Source tells where a sample came from.
type Source string

const (
	SourceLive      Source = "live"
	SourceSynthetic Source = "synthetic"
)

// Sample is a single recorded reading.
//
// Samples are values; once appended to a series they are never modified.
type Sample struct {
	Metric    Metric    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
}

// SampleSet holds the readings produced by one sampling tick.
// A metric missing from the set means "no update this tick".
type SampleSet map[Metric]Sample
