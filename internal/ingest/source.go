// Package ingest produces one normalized sample set per sampling tick.
package ingest

import (
	"context"

	"vitals-monitor/internal/vitals"
)

// Source yields the current readings for some or all metrics.
type Source interface {
	Fetch(ctx context.Context) (vitals.SampleSet, error)
}

// Mode reports where the last sample set came from.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSynthetic Mode = "synthetic"
)
