package subscription

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/event"
)

// FrameInfo describes one animation frame tick.
type FrameInfo struct {
	Time time.Time
	Seq  uint64
}

// PointerUp matches pointer releases. Frame ticks and resizes are skipped.
func PointerUp(ev event.Event) (event.PointerEvent, bool) {
	if ev.Kind != event.KindPointerUp {
		return event.PointerEvent{}, false
	}
	return ev.Pointer, true
}

// AnimationFrame matches frame ticks.
func AnimationFrame(ev event.Event) (FrameInfo, bool) {
	if ev.Kind != event.KindFrame {
		return FrameInfo{}, false
	}
	return FrameInfo{Seq: ev.Seq, Time: ev.Time}, true
}

// Resize matches surface resizes.
func Resize(ev event.Event) (event.Size, bool) {
	if ev.Kind != event.KindResize {
		return event.Size{}, false
	}
	return ev.Size, true
}

// PointerUpSubscription is a subscription to pointer releases.
type PointerUpSubscription = Subscription[event.PointerEvent]

// FrameSubscription is a subscription to animation frames.
type FrameSubscription = Subscription[FrameInfo]

// NewPointerUp subscribes to pointer releases on bus.
func NewPointerUp(bus *event.Bus, logger *zap.Logger) *PointerUpSubscription {
	return New(bus, PointerUp, WithLogger(logger), WithName("pointer-up"))
}

// NewAnimationFrame subscribes to frame ticks on bus.
func NewAnimationFrame(bus *event.Bus, logger *zap.Logger) *FrameSubscription {
	return New(bus, AnimationFrame, WithLogger(logger), WithName("frame"))
}
