package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/event"
)

// DefaultInterval is one frame at roughly 60 Hz.
const DefaultInterval = 16 * time.Millisecond

// Ticker publishes a Frame event on Bus every Interval.
type Ticker struct {
	Bus      *event.Bus
	Logger   *zap.Logger
	Interval time.Duration
}

// Run ticks until ctx is done or the bus closes. It returns nil on either.
func (t *Ticker) Run(ctx context.Context) error {
	if t.Bus == nil {
		return errors.InvalidInput(errors.PhaseEvent, "ticker needs a bus")
	}
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug("frame ticker started", zap.Duration("interval", interval))
	var frames uint64
	for {
		select {
		case <-ctx.Done():
			logger.Debug("frame ticker stopped", zap.Uint64("frames", frames))
			return nil
		case now := <-ticker.C:
			if t.Bus.Closed() {
				return nil
			}
			ev := event.Frame()
			ev.Time = now
			t.Bus.Publish(ev)
			frames++
		}
	}
}

// PublishPointerUp publishes a pointer release at (x, y) and returns how
// many receivers were attached.
func PublishPointerUp(bus *event.Bus, x, y int32) int {
	return bus.Publish(event.PointerUp(x, y))
}

// PublishResize publishes a window resize.
func PublishResize(bus *event.Bus, width, height uint32) int {
	return bus.Publish(event.Resize(width, height))
}
