package host

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wippyai/canvas-host/abi"
	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/graphics"
	"github.com/wippyai/canvas-host/resource"
)

// GraphicsContextHost serves component:webgpu/graphics-context.
type GraphicsContextHost struct {
	h *Host
}

func (g *GraphicsContextHost) Namespace() string {
	return abi.NamespaceGraphicsContext
}

func (g *GraphicsContextHost) ConstructorGraphicsContext(ctx context.Context) uint32 {
	const op = "[constructor]graphics-context"
	_, span := g.h.span(ctx, g.Namespace(), op, 0)
	defer g.h.lock()()

	handle := g.h.graphics.New()
	span.SetAttributes(attribute.Int64("wit.handle", int64(handle)))
	g.h.finish(span, op, nil)
	return uint32(handle)
}

func (g *GraphicsContextHost) MethodGraphicsContextConfigure(ctx context.Context, self uint32, desc graphics.Descriptor) (err error) {
	const op = "[method]graphics-context.configure"
	_, span := g.h.span(ctx, g.Namespace(), op, self)
	span.SetAttributes(
		attribute.String("graphics.backend", desc.Backend.String()),
		attribute.Int64("graphics.width", int64(desc.Width)),
		attribute.Int64("graphics.height", int64(desc.Height)),
	)
	defer func() { g.h.finish(span, op, err) }()
	defer g.h.lock()()

	return g.h.graphics.Configure(resource.Handle(self), desc)
}

func (g *GraphicsContextHost) MethodGraphicsContextGetCurrentBuffer(ctx context.Context, self uint32) (buf uint32, err error) {
	const op = "[method]graphics-context.get-current-buffer"
	_, span := g.h.span(ctx, g.Namespace(), op, self)
	defer func() { g.h.finish(span, op, err) }()
	defer g.h.lock()()

	h, err := g.h.graphics.CurrentBuffer(resource.Handle(self))
	return uint32(h), err
}

func (g *GraphicsContextHost) ResourceDropGraphicsContext(ctx context.Context, self uint32) (err error) {
	const op = "[resource-drop]graphics-context"
	_, span := g.h.span(ctx, g.Namespace(), op, self)
	defer func() { g.h.finish(span, op, err) }()
	defer g.h.lock()()

	return g.h.graphics.Drop(resource.Handle(self))
}

func (g *GraphicsContextHost) MethodGraphicsContextBufferPresent(ctx context.Context, self uint32) (err error) {
	const op = "[method]graphics-context-buffer.present"
	_, span := g.h.span(ctx, g.Namespace(), op, self)
	defer func() { g.h.finish(span, op, err) }()
	defer g.h.lock()()

	return g.h.graphics.Present(resource.Handle(self))
}

func (g *GraphicsContextHost) ResourceDropGraphicsContextBuffer(ctx context.Context, self uint32) (err error) {
	const op = "[resource-drop]graphics-context-buffer"
	_, span := g.h.span(ctx, g.Namespace(), op, self)
	defer func() { g.h.finish(span, op, err) }()
	defer g.h.lock()()

	return g.h.graphics.DropBuffer(resource.Handle(self))
}

func (g *GraphicsContextHost) Register() map[string]any {
	return map[string]any{
		"[constructor]graphics-context":               g.ConstructorGraphicsContext,
		"[method]graphics-context.configure":          g.MethodGraphicsContextConfigure,
		"[method]graphics-context.get-current-buffer": g.MethodGraphicsContextGetCurrentBuffer,
		"[resource-drop]graphics-context":             g.ResourceDropGraphicsContext,
		"[method]graphics-context-buffer.present":     g.MethodGraphicsContextBufferPresent,
		"[resource-drop]graphics-context-buffer":      g.ResourceDropGraphicsContextBuffer,
	}
}

// DescriptorFromABI converts the flattened configure-context-desc record.
func DescriptorFromABI(backend, width, height, presentMode uint32) (graphics.Descriptor, error) {
	desc := graphics.Descriptor{Width: width, Height: height}

	switch backend {
	case abi.BackendKindWebGPU:
		desc.Backend = graphics.BackendWebGPU
	case abi.BackendKindSimpleBuffer:
		desc.Backend = graphics.BackendSimpleBuffer
	default:
		return desc, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
			Detail("backend kind %d", backend).
			Build()
	}

	switch presentMode {
	case abi.PresentModeFifo:
		desc.PresentMode = graphics.PresentModeFifo
	case abi.PresentModeImmediate:
		desc.PresentMode = graphics.PresentModeImmediate
	case abi.PresentModeMailbox:
		desc.PresentMode = graphics.PresentModeMailbox
	default:
		return desc, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
			Detail("present mode %d", presentMode).
			Build()
	}
	return desc, nil
}
