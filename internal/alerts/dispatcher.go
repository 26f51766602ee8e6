package alerts

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"vitals-monitor/internal/anomaly"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
)

// DefaultCapacity is how many alerts the dispatcher keeps.
const DefaultCapacity = 5

// Publisher receives every newly dispatched alert.
// Publish must not block the analysis cycle for long; errors are only logged.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// Flusher is implemented by publishers that deliver asynchronously.
// Flush blocks until every alert handed to Publish has been delivered
// or has failed.
type Flusher interface {
	Flush()
}

// Dispatcher turns anomaly events into a bounded queue of alerts.
//
// Every event produces a new alert, identical or not; the only bound is
// capacity, past which the oldest alert is dropped.
type Dispatcher struct {
	mu         sync.RWMutex
	queue      []Alert
	capacity   int
	subjectID  string
	publishers []Publisher
	logger     *logs.Logger
	metrics    *metrics.Registry
}

// NewDispatcher creates a dispatcher keeping up to capacity alerts.
func NewDispatcher(
	capacity int,
	subjectID string,
	logger *logs.Logger,
	reg *metrics.Registry,
	publishers ...Publisher,
) *Dispatcher {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Dispatcher{
		queue:      make([]Alert, 0, capacity),
		capacity:   capacity,
		subjectID:  subjectID,
		publishers: publishers,
		logger:     logger,
		metrics:    reg,
	}
}

// Dispatch enqueues one alert per event, in order, and hands each new
// alert to the publishers. It returns the alerts it created.
func (d *Dispatcher) Dispatch(ctx context.Context, events []anomaly.Event) []Alert {
	if len(events) == 0 {
		return nil
	}

	created := make([]Alert, 0, len(events))

	d.mu.Lock()
	for _, e := range events {
		a := fromEvent(d.subjectID, e)
		if len(d.queue) >= d.capacity {
			copy(d.queue, d.queue[1:])
			d.queue = d.queue[:len(d.queue)-1]
			d.metrics.Inc(metrics.AlertsDroppedTotal)
		}
		d.queue = append(d.queue, a)
		created = append(created, a)
	}
	queued := len(d.queue)
	d.mu.Unlock()

	d.metrics.Add(metrics.AlertsDispatchedTotal, int64(len(created)))
	d.metrics.SetAlertQueueLength(queued)

	for _, a := range created {
		d.logger.Info("alert dispatched",
			zap.String("alert_id", a.ID),
			zap.String("kind", string(a.Kind)),
			zap.String("metric", string(a.Metric)),
			zap.String("severity", string(a.Severity)),
			zap.Float64("value", a.Value),
		)
		d.publish(ctx, a)
	}

	return created
}

func (d *Dispatcher) publish(ctx context.Context, a Alert) {
	for _, p := range d.publishers {
		if err := p.Publish(ctx, a); err != nil {
			d.metrics.Inc(metrics.AlertPublishFailuresTotal)
			d.logger.Warn("alert publish failed",
				zap.String("alert_id", a.ID),
				zap.Error(err),
			)
		}
	}
}

// Current returns the queued alerts, most recent last.
func (d *Dispatcher) Current() []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Alert, len(d.queue))
	copy(out, d.queue)
	return out
}

// Acknowledge marks the alert with the given id as seen.
// It reports false when no queued alert has that id.
func (d *Dispatcher) Acknowledge(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.queue {
		if d.queue[i].ID == id {
			d.queue[i].Acknowledged = true
			return true
		}
	}
	return false
}

// Flush waits for in-flight deliveries on every publisher that supports it.
func (d *Dispatcher) Flush() {
	for _, p := range d.publishers {
		if f, ok := p.(Flusher); ok {
			f.Flush()
		}
	}
}
