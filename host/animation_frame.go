package host

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wippyai/canvas-host/abi"
	"github.com/wippyai/canvas-host/resource"
	"github.com/wippyai/canvas-host/subscription"
)

// AnimationFrameHost serves component:webgpu/request-animation-frame.
type AnimationFrameHost struct {
	h *Host
}

func (a *AnimationFrameHost) Namespace() string {
	return abi.NamespaceAnimationFrame
}

func (a *AnimationFrameHost) GetFrame(ctx context.Context) uint32 {
	const op = "get-frame"
	_, span := a.h.span(ctx, a.Namespace(), op, 0)
	defer a.h.lock()()

	sub := subscription.NewAnimationFrame(a.h.bus, a.h.logger)
	handle := a.h.frames.Insert(sub)
	span.SetAttributes(attribute.Int64("wit.handle", int64(handle)))
	a.h.finish(span, op, nil)
	return uint32(handle)
}

func (a *AnimationFrameHost) MethodFrameSubscribe(ctx context.Context, self uint32) (pollable uint32, err error) {
	const op = "[method]frame.subscribe"
	_, span := a.h.span(ctx, a.Namespace(), op, self)
	defer func() { a.h.finish(span, op, err) }()
	defer a.h.lock()()

	sub, err := a.h.frames.Get(resource.Handle(self))
	if err != nil {
		return 0, err
	}
	return a.h.subscribePollable(resource.Handle(self), sub)
}

// MethodFrameGet takes the latched tick, reporting a lag once like
// MethodPointerUpGet.
func (a *AnimationFrameHost) MethodFrameGet(ctx context.Context, self uint32) (info subscription.FrameInfo, ok bool, err error) {
	const op = "[method]frame.get"
	_, span := a.h.span(ctx, a.Namespace(), op, self)
	defer func() { a.h.finish(span, op, err) }()
	defer a.h.lock()()

	sub, err := a.h.frames.Get(resource.Handle(self))
	if err != nil {
		return subscription.FrameInfo{}, false, err
	}
	if err := sub.Lag(); err != nil {
		return subscription.FrameInfo{}, false, err
	}
	info, ok = sub.Take()
	return info, ok, nil
}

func (a *AnimationFrameHost) ResourceDropFrame(ctx context.Context, self uint32) (err error) {
	const op = "[resource-drop]frame"
	_, span := a.h.span(ctx, a.Namespace(), op, self)
	defer func() { a.h.finish(span, op, err) }()
	defer a.h.lock()()

	_, err = a.h.frames.Remove(resource.Handle(self))
	return ignoreStale(err)
}

func (a *AnimationFrameHost) Register() map[string]any {
	return map[string]any{
		"get-frame":               a.GetFrame,
		"[method]frame.subscribe": a.MethodFrameSubscribe,
		"[method]frame.get":       a.MethodFrameGet,
		"[resource-drop]frame":    a.ResourceDropFrame,
	}
}
