package ingest

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"vitals-monitor/internal/vitals"
)

// Synthetic generates physiologically bounded readings from the wall clock.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSynthetic creates a generator. A nil clock uses time.Now and a nil rng
// is seeded from the current time.
func NewSynthetic(now func() time.Time, rng *rand.Rand) *Synthetic {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Synthetic{rng: rng, now: now}
}

// Fetch never fails.
func (s *Synthetic) Fetch(_ context.Context) (vitals.SampleSet, error) {
	return s.Generate(), nil
}

// Generate returns a full sample set for the current instant.
func (s *Synthetic) Generate() vitals.SampleSet {
	now := s.now()

	s.mu.Lock()
	hrNoise := s.uniform(-3, 3)
	o2Noise := s.uniform(-1, 1)
	stress := s.uniform(0, 0.1)
	tempNoise := s.uniform(-0.2, 0.2)
	s.mu.Unlock()

	ms := float64(now.UnixMilli())
	phase := func(period time.Duration) float64 {
		return math.Sin(ms / float64(period.Milliseconds()))
	}

	values := map[vitals.Metric]float64{
		vitals.HeartRate: clamp(
			72+phase(10*time.Second)*8+hrNoise+math.Sin(dayFraction(now)*2*math.Pi)*10*0.1,
			60, 100),
		vitals.Oxygen:      clamp(98+o2Noise, 95, 100),
		vitals.SystolicBP:  clamp(120+phase(15*time.Second)*8+stress*15, 110, 140),
		vitals.DiastolicBP: clamp(80+phase(12*time.Second)*5+stress*8, 70, 90),
		vitals.BodyTemp:    clamp(98.6+phase(20*time.Second)*0.8+tempNoise, 97.0, 99.5),
	}

	set := make(vitals.SampleSet, len(values))
	for m, v := range values {
		set[m] = vitals.Sample{Metric: m, Value: v, Timestamp: now, Source: vitals.SourceSynthetic}
	}
	return set
}

func (s *Synthetic) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// dayFraction is the elapsed fraction of the local day, in [0,1).
func dayFraction(t time.Time) float64 {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return t.Sub(midnight).Seconds() / (24 * time.Hour).Seconds()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
