package host

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/canvas-host/abi"
	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/resource"
	"github.com/wippyai/canvas-host/subscription"
)

// PollHost serves wasi:io/poll for pollables created by subscribe.
type PollHost struct {
	h *Host
}

var errWoke = stderrors.New("pollable ready")

func (p *PollHost) Namespace() string {
	return abi.NamespacePoll
}

// Poll blocks until at least one of the pollables is ready and returns the
// indices of every ready one. It never returns an empty list.
func (p *PollHost) Poll(ctx context.Context, handles []uint32) (ready []uint32, err error) {
	const op = "poll"
	ctx, span := p.h.span(ctx, p.Namespace(), op, 0)
	span.SetAttributes(attribute.Int("wit.pollables", len(handles)))
	defer func() { p.h.finish(span, op, err) }()

	pollables, err := p.resolve(handles)
	if err != nil {
		return nil, err
	}

	for {
		if ready = readyIndices(pollables); len(ready) > 0 {
			return ready, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, pl := range pollables {
			g.Go(func() error {
				err := pl.Block(gctx)
				if gctx.Err() != nil {
					return nil
				}
				if err != nil && !isLag(err) {
					p.h.logger.Debug("pollable woke with error", zap.Error(err))
				}
				return errWoke
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, errors.Canceled(errors.PhaseDispatch, err)
		}
	}
}

func (p *PollHost) resolve(handles []uint32) ([]*subscription.Pollable, error) {
	if len(handles) == 0 {
		return nil, errors.InvalidInput(errors.PhaseDispatch, "poll needs at least one pollable")
	}

	defer p.h.lock()()
	out := make([]*subscription.Pollable, len(handles))
	for i, handle := range handles {
		pl, err := p.h.pollables.Get(resource.Handle(handle))
		if err != nil {
			return nil, err
		}
		out[i] = pl
	}
	return out, nil
}

func readyIndices(pollables []*subscription.Pollable) []uint32 {
	var ready []uint32
	for i, pl := range pollables {
		if pl.Ready() {
			ready = append(ready, uint32(i))
		}
	}
	return ready
}

func (p *PollHost) MethodPollableReady(ctx context.Context, self uint32) (ready bool, err error) {
	const op = "[method]pollable.ready"
	_, span := p.h.span(ctx, p.Namespace(), op, self)
	defer func() { p.h.finish(span, op, err) }()
	defer p.h.lock()()

	pl, err := p.h.pollables.Get(resource.Handle(self))
	if err != nil {
		return false, err
	}
	return pl.Ready(), nil
}

// MethodPollableBlock waits outside the dispatch lock, so dropping the
// owning subscription from another goroutine cancels the wait. Lag and
// cancellation end the wait; a lag stays pending until the next get.
func (p *PollHost) MethodPollableBlock(ctx context.Context, self uint32) (err error) {
	const op = "[method]pollable.block"
	ctx, span := p.h.span(ctx, p.Namespace(), op, self)
	defer func() { p.h.finish(span, op, err) }()

	unlock := p.h.lock()
	pl, err := p.h.pollables.Get(resource.Handle(self))
	unlock()
	if err != nil {
		return err
	}

	return pl.Block(ctx)
}

func (p *PollHost) ResourceDropPollable(ctx context.Context, self uint32) (err error) {
	const op = "[resource-drop]pollable"
	_, span := p.h.span(ctx, p.Namespace(), op, self)
	defer func() { p.h.finish(span, op, err) }()
	defer p.h.lock()()

	_, err = p.h.pollables.Remove(resource.Handle(self))
	return ignoreStale(err)
}

func (p *PollHost) Register() map[string]any {
	return map[string]any{
		"poll":                    p.Poll,
		"[method]pollable.ready":  p.MethodPollableReady,
		"[method]pollable.block":  p.MethodPollableBlock,
		"[resource-drop]pollable": p.ResourceDropPollable,
	}
}
