package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vitals-monitor/internal/logs"
)

// Cycle runs a tick function on a fixed interval.
type Cycle struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context)
	logger   *logs.Logger
}

// NewCycle creates a new cycle.
func NewCycle(
	name string,
	interval time.Duration,
	tick func(ctx context.Context),
	logger *logs.Logger,
) *Cycle {
	return &Cycle{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Start runs the loop until the context is cancelled.
// It blocks and should typically be run in a separate goroutine.
func (c *Cycle) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Debug("cycle started", zap.String("cycle", c.name), zap.Duration("interval", c.interval))

	for {
		select {
		case <-ticker.C:
			c.runOnce(ctx)
		case <-ctx.Done():
			c.logger.Debug("cycle stopped", zap.String("cycle", c.name))
			return
		}
	}
}

// runOnce performs a single tick unless the cycle is already cancelled.
func (c *Cycle) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	c.tick(ctx)
}
