package anomaly

import (
	"errors"
	"testing"
	"time"

	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/vitals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ---------------- Fake Reader ---------------- */

type fakeReader map[vitals.Metric][]vitals.Sample

func (f fakeReader) Len(m vitals.Metric) int { return len(f[m]) }

func (f fakeReader) Window(m vitals.Metric, k int) []vitals.Sample {
	s := f[m]
	if k > len(s) {
		k = len(s)
	}
	return s[len(s)-k:]
}

var start = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// series pads the given tail with steady readings so the history is long
// enough for the detectors to run.
func series(m vitals.Metric, pad float64, tail ...float64) []vitals.Sample {
	values := make([]float64, 0, MinHistory+len(tail))
	for i := 0; i < MinHistory; i++ {
		values = append(values, pad)
	}
	values = append(values, tail...)

	out := make([]vitals.Sample, len(values))
	for i, v := range values {
		out[i] = vitals.Sample{Metric: m, Value: v, Timestamp: start.Add(time.Duration(i) * 2 * time.Second)}
	}
	return out
}

func newTestDetector(rules ...Rule) (*Detector, *metrics.Registry, *logs.Logger) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(20, logs.DEBUG)
	return NewDetector(logger, reg, rules...), reg, logger
}

/* ---------------- Tests ---------------- */

func TestSpikeRule(t *testing.T) {
	t.Run("deviation above threshold", func(t *testing.T) {
		d, reg, _ := newTestDetector()
		r := fakeReader{vitals.HeartRate: series(vitals.HeartRate, 70, 70, 71, 69, 70, 95)}

		events := d.Detect(r)
		require.Len(t, events, 1)

		e := events[0]
		assert.Equal(t, KindSpike, e.Kind)
		assert.Equal(t, SeverityMedium, e.Severity)
		assert.Equal(t, vitals.HeartRate, e.Metric)
		assert.Equal(t, 95.0, e.Observed)
		require.NotNil(t, e.Baseline)
		assert.InDelta(t, 70.0, *e.Baseline, 1e-9)
		assert.Equal(t, int64(1), reg.Snapshot()[string(metrics.AnomaliesDetectedTotal)])
	})

	t.Run("deviation below threshold", func(t *testing.T) {
		d, _, _ := newTestDetector()
		r := fakeReader{vitals.HeartRate: series(vitals.HeartRate, 70, 70, 71, 69, 70, 75)}

		assert.Empty(t, d.Detect(r))
	})

	t.Run("exactly at threshold is not a spike", func(t *testing.T) {
		d, _, _ := newTestDetector()
		r := fakeReader{vitals.HeartRate: series(vitals.HeartRate, 70, 70, 70, 70, 70, 90)}

		assert.Empty(t, d.Detect(r))
	})

	t.Run("downward spike", func(t *testing.T) {
		d, _, _ := newTestDetector()
		r := fakeReader{vitals.HeartRate: series(vitals.HeartRate, 80, 80, 80, 80, 80, 55)}

		events := d.Detect(r)
		require.Len(t, events, 1)
		assert.Equal(t, 55.0, events[0].Observed)
	})
}

func TestSustainedLowOxygenRule(t *testing.T) {
	t.Run("three readings below floor", func(t *testing.T) {
		d, _, _ := newTestDetector()
		r := fakeReader{vitals.Oxygen: series(vitals.Oxygen, 98, 93, 94, 92)}

		events := d.Detect(r)
		require.Len(t, events, 1)

		e := events[0]
		assert.Equal(t, KindSustainedOutOfRange, e.Kind)
		assert.Equal(t, SeverityHigh, e.Severity)
		assert.Equal(t, 92.0, e.Observed)
		assert.Nil(t, e.Baseline)
	})

	t.Run("one reading recovers", func(t *testing.T) {
		d, _, _ := newTestDetector()
		r := fakeReader{vitals.Oxygen: series(vitals.Oxygen, 98, 93, 96, 92)}

		assert.Empty(t, d.Detect(r))
	})

	t.Run("floor itself is in range", func(t *testing.T) {
		d, _, _ := newTestDetector()
		r := fakeReader{vitals.Oxygen: series(vitals.Oxygen, 98, 93, 95, 92)}

		assert.Empty(t, d.Detect(r))
	})
}

func TestDetector_InsufficientHistory(t *testing.T) {
	d, _, _ := newTestDetector()

	short := series(vitals.HeartRate, 70, 70, 71, 69, 70, 95)[MinHistory-4:]
	require.Len(t, short, 9)

	r := fakeReader{
		vitals.HeartRate: short,
		vitals.Oxygen:    series(vitals.Oxygen, 93)[:3],
	}

	assert.Empty(t, d.Detect(r))
}

func TestDetector_BothFamiliesRun(t *testing.T) {
	d, _, _ := newTestDetector()
	r := fakeReader{
		vitals.HeartRate: series(vitals.HeartRate, 70, 70, 71, 69, 70, 95),
		vitals.Oxygen:    series(vitals.Oxygen, 98, 93, 94, 92),
	}

	events := d.Detect(r)
	require.Len(t, events, 2)
	assert.Equal(t, KindSpike, events[0].Kind)
	assert.Equal(t, KindSustainedOutOfRange, events[1].Kind)
}

func TestDetector_IsolatesFaultyRules(t *testing.T) {
	panicking := Rule{
		Name:   "panicking",
		Metric: vitals.HeartRate,
		Window: 5,
		Evaluate: func([]vitals.Sample) (Event, bool, error) {
			panic("boom")
		},
	}
	failing := Rule{
		Name:   "failing",
		Metric: vitals.HeartRate,
		Window: 5,
		Evaluate: func([]vitals.Sample) (Event, bool, error) {
			return Event{}, false, errors.New("bad window")
		},
	}

	d, reg, logger := newTestDetector(panicking, failing, SustainedLowOxygenRule())
	r := fakeReader{
		vitals.HeartRate: series(vitals.HeartRate, 70),
		vitals.Oxygen:    series(vitals.Oxygen, 98, 93, 94, 92),
	}

	var events []Event
	assert.NotPanics(t, func() { events = d.Detect(r) })

	require.Len(t, events, 1)
	assert.Equal(t, vitals.Oxygen, events[0].Metric)
	assert.Equal(t, int64(2), reg.Snapshot()[string(metrics.DetectorFaultsTotal)])

	warnings := 0
	for _, e := range logger.GetLast(20) {
		if e.Level == logs.WARN {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestRules_ShortWindowIsAnError(t *testing.T) {
	_, ok, err := SpikeRule().Evaluate(series(vitals.HeartRate, 70)[:3])
	assert.False(t, ok)
	assert.ErrorIs(t, err, errShortWindow)

	_, ok, err = SustainedLowOxygenRule().Evaluate(nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errShortWindow)
}
