// Package console prints a one-line status summary of the engine.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"vitals-monitor/internal/classify"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/monitor"
	"vitals-monitor/internal/vitals"
)

// SnapshotSource is anything that can publish a snapshot.
type SnapshotSource interface {
	Snapshot() monitor.Snapshot
}

// Reporter writes one styled line per interval.
type Reporter struct {
	source   SnapshotSource
	out      io.Writer
	interval time.Duration
	logger   *logs.Logger
}

// NewReporter creates a reporter.
func NewReporter(source SnapshotSource, out io.Writer, interval time.Duration, logger *logs.Logger) *Reporter {
	return &Reporter{source: source, out: out, interval: interval, logger: logger}
}

// Start prints until ctx is cancelled.
func (r *Reporter) Start(ctx context.Context) {
	monitor.NewCycle("console", r.interval, func(context.Context) {
		r.Print()
	}, r.logger).Start(ctx)
}

// Print writes the current line.
func (r *Reporter) Print() {
	fmt.Fprintln(r.out, Render(r.source.Snapshot()))
}

var shortLabels = map[vitals.Metric]string{
	vitals.HeartRate:   "HR",
	vitals.Oxygen:      "SpO2",
	vitals.SystolicBP:  "SYS",
	vitals.DiastolicBP: "DIA",
	vitals.BodyTemp:    "TEMP",
}

// Render formats a snapshot as a single line.
func Render(s monitor.Snapshot) string {
	var b strings.Builder

	state := "stopped"
	if s.Session.Active {
		state = "active"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("[%s %s/%s]", s.Session.SubjectID, state, s.FeedMode)))

	for _, m := range vitals.All {
		r, ok := s.Vitals[m]
		if !ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(labelStyle.Render(shortLabels[m] + "="))
		b.WriteString(statusStyle(r.Status).Render(fmt.Sprintf("%.1f%s", r.Value, r.Unit)))
	}

	if s.Health != nil {
		b.WriteString(" ")
		b.WriteString(labelStyle.Render("score="))
		b.WriteString(scoreStyle(s.Health.Score).Render(fmt.Sprintf("%d", s.Health.Score)))
		b.WriteString(labelStyle.Render(" hrv=" + string(s.Health.Variability)))
	}

	unacked := 0
	for _, a := range s.Alerts {
		if !a.Acknowledged {
			unacked++
		}
	}
	if unacked > 0 {
		b.WriteString(" ")
		b.WriteString(critStyle.Render(fmt.Sprintf("alerts=%d", unacked)))
	}

	return b.String()
}

func statusStyle(st classify.Status) lipgloss.Style {
	switch st {
	case classify.StatusNormal:
		return okStyle
	case classify.StatusWarning:
		return warnStyle
	default:
		return critStyle
	}
}

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 90:
		return okStyle
	case score >= 80:
		return warnStyle
	default:
		return critStyle
	}
}
