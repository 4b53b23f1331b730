package main

import (
	"context"
	"math"

	"github.com/gogpu/gg"
	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/graphics"
	"github.com/wippyai/canvas-host/host"
	"github.com/wippyai/canvas-host/resource"
)

var (
	background = gg.Hex("#1a1b26")
	rippleInk  = gg.Hex("#7aa2f7")
)

const rippleLife = 24

type ripple struct {
	x, y int
	age  int
}

// ripples is the built-in guest: it draws an expanding ring wherever the
// pointer is released and advances the rings on every animation frame. It
// talks to the host only through the interface hosts, the way a wasm guest
// would through its imports. size reports the window size to reconfigure
// to after a resize.
type ripples struct {
	h         *host.Host
	logger    *zap.Logger
	size      func() (uint32, uint32)
	desc      graphics.Descriptor
	active    []ripple
	presented uint64
}

func (r *ripples) Run(ctx context.Context) error {
	gc, pe, af, poll := r.h.GraphicsContext, r.h.PointerEvents, r.h.AnimationFrame, r.h.Poll

	c := gc.ConstructorGraphicsContext(ctx)
	defer gc.ResourceDropGraphicsContext(context.WithoutCancel(ctx), c)
	if err := gc.MethodGraphicsContextConfigure(ctx, c, r.desc); err != nil {
		return err
	}

	up := pe.Up(ctx)
	defer pe.ResourceDropPointerUp(context.WithoutCancel(ctx), up)
	upReady, err := pe.MethodPointerUpSubscribe(ctx, up)
	if err != nil {
		return err
	}

	frame := af.GetFrame(ctx)
	defer af.ResourceDropFrame(context.WithoutCancel(ctx), frame)
	frameReady, err := af.MethodFrameSubscribe(ctx, frame)
	if err != nil {
		return err
	}

	r.h.Example.Print(ctx, "ripples started")
	for {
		ready, err := poll.Poll(ctx, []uint32{upReady, frameReady})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, i := range ready {
			switch i {
			case 0:
				if ev, ok, _ := pe.MethodPointerUpGet(ctx, up); ok {
					r.active = append(r.active, ripple{x: int(ev.X), y: int(ev.Y)})
				}
			case 1:
				if _, ok, _ := af.MethodFrameGet(ctx, frame); ok {
					if err := r.draw(ctx, c); err != nil {
						return err
					}
				}
			}
		}
	}
}

func (r *ripples) draw(ctx context.Context, c uint32) error {
	gc := r.h.GraphicsContext

	if r.resized() {
		if err := r.reconfigure(ctx, c); err != nil {
			return err
		}
	}
	buf, err := gc.MethodGraphicsContextGetCurrentBuffer(ctx, c)
	if errors.Is(err, errors.ErrSurfaceOutdated) {
		if err := r.reconfigure(ctx, c); err != nil {
			return err
		}
		buf, err = gc.MethodGraphicsContextGetCurrentBuffer(ctx, c)
	}
	if err != nil {
		return err
	}

	if b, err := r.h.Graphics().Buffer(resource.Handle(buf)); err == nil && b.Pixels != nil {
		paint(b.Pixels, r.active)
	}
	r.advance()

	if err := gc.MethodGraphicsContextBufferPresent(ctx, buf); err != nil {
		r.logger.Warn("present failed", zap.Error(err))
		return gc.ResourceDropGraphicsContextBuffer(ctx, buf)
	}
	r.presented++
	return nil
}

func (r *ripples) resized() bool {
	if r.size == nil {
		return false
	}
	w, h := r.size()
	return w != r.desc.Width || h != r.desc.Height
}

func (r *ripples) reconfigure(ctx context.Context, c uint32) error {
	if r.size != nil {
		r.desc.Width, r.desc.Height = r.size()
	}
	r.logger.Debug("reconfiguring",
		zap.Uint32("width", r.desc.Width), zap.Uint32("height", r.desc.Height))
	return r.h.GraphicsContext.MethodGraphicsContextConfigure(ctx, c, r.desc)
}

func (r *ripples) advance() {
	live := r.active[:0]
	for _, rp := range r.active {
		rp.age++
		if rp.age < rippleLife {
			live = append(live, rp)
		}
	}
	r.active = live
}

func paint(pm *gg.Pixmap, active []ripple) {
	pm.Clear(background)
	for _, rp := range active {
		ink := rippleInk.Lerp(background, float64(rp.age)/rippleLife)
		ring(pm, rp.x, rp.y, float64(rp.age)+1, ink)
	}
}

func ring(pm *gg.Pixmap, cx, cy int, radius float64, c gg.RGBA) {
	steps := int(2*math.Pi*radius) + 8
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := cx + int(math.Round(radius*math.Cos(a)))
		y := cy + int(math.Round(radius*math.Sin(a)))
		if x >= 0 && y >= 0 && x < pm.Width() && y < pm.Height() {
			pm.SetPixel(x, y, c)
		}
	}
}
