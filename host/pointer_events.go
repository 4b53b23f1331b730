package host

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wippyai/canvas-host/abi"
	"github.com/wippyai/canvas-host/event"
	"github.com/wippyai/canvas-host/resource"
	"github.com/wippyai/canvas-host/subscription"
)

// PointerEventsHost serves component:webgpu/pointer-events.
type PointerEventsHost struct {
	h *Host
}

func (p *PointerEventsHost) Namespace() string {
	return abi.NamespacePointerEvents
}

// Up creates a pointer-release subscription. Its cursor is attached now, so
// releases published before the first wait are not lost.
func (p *PointerEventsHost) Up(ctx context.Context) uint32 {
	const op = "up"
	_, span := p.h.span(ctx, p.Namespace(), op, 0)
	defer p.h.lock()()

	sub := subscription.NewPointerUp(p.h.bus, p.h.logger)
	handle := p.h.pointers.Insert(sub)
	span.SetAttributes(attribute.Int64("wit.handle", int64(handle)))
	p.h.finish(span, op, nil)
	return uint32(handle)
}

func (p *PointerEventsHost) MethodPointerUpSubscribe(ctx context.Context, self uint32) (pollable uint32, err error) {
	const op = "[method]pointer-up.subscribe"
	_, span := p.h.span(ctx, p.Namespace(), op, self)
	defer func() { p.h.finish(span, op, err) }()
	defer p.h.lock()()

	sub, err := p.h.pointers.Get(resource.Handle(self))
	if err != nil {
		return 0, err
	}
	return p.h.subscribePollable(resource.Handle(self), sub)
}

// MethodPointerUpGet takes the latched release, if any. It never waits. A
// lag seen since the last get is returned once as ErrSubscriptionLag; the
// latched value, if any, stays for the next get.
func (p *PointerEventsHost) MethodPointerUpGet(ctx context.Context, self uint32) (ev event.PointerEvent, ok bool, err error) {
	const op = "[method]pointer-up.get"
	_, span := p.h.span(ctx, p.Namespace(), op, self)
	defer func() { p.h.finish(span, op, err) }()
	defer p.h.lock()()

	sub, err := p.h.pointers.Get(resource.Handle(self))
	if err != nil {
		return event.PointerEvent{}, false, err
	}
	if err := sub.Lag(); err != nil {
		return event.PointerEvent{}, false, err
	}
	ev, ok = sub.Take()
	return ev, ok, nil
}

// ResourceDropPointerUp releases the subscription, cancelling any wait on
// it, and drops its pollables.
func (p *PointerEventsHost) ResourceDropPointerUp(ctx context.Context, self uint32) (err error) {
	const op = "[resource-drop]pointer-up"
	_, span := p.h.span(ctx, p.Namespace(), op, self)
	defer func() { p.h.finish(span, op, err) }()
	defer p.h.lock()()

	_, err = p.h.pointers.Remove(resource.Handle(self))
	return ignoreStale(err)
}

func (p *PointerEventsHost) Register() map[string]any {
	return map[string]any{
		"up":                           p.Up,
		"[method]pointer-up.subscribe": p.MethodPointerUpSubscribe,
		"[method]pointer-up.get":       p.MethodPointerUpGet,
		"[resource-drop]pointer-up":    p.ResourceDropPointerUp,
	}
}

// subscribePollable inserts a pollable for w as a child of owner. Caller
// holds the dispatch lock.
func (h *Host) subscribePollable(owner resource.Handle, w subscription.Waiter) (uint32, error) {
	ph, err := h.pollables.InsertChild(subscription.NewPollable(w), owner)
	return uint32(ph), err
}
