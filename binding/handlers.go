package binding

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/abi"
	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/host"
)

// Allocator reserves size bytes aligned to align in the guest's memory.
type Allocator func(ctx context.Context, mod api.Module, size, align uint32) (uint32, error)

// CabiRealloc allocates through the guest's exported cabi_realloc.
func CabiRealloc(ctx context.Context, mod api.Module, size, align uint32) (uint32, error) {
	fn := mod.ExportedFunction("cabi_realloc")
	if fn == nil {
		return 0, errors.New(errors.PhaseBinding, errors.KindInstantiation).
			Detail("guest does not export cabi_realloc").
			Build()
	}
	res, err := fn.Call(ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseBinding, errors.KindOutOfMemory, err, "cabi_realloc")
	}
	return api.DecodeU32(res[0]), nil
}

type lowering struct {
	h      *host.Host
	alloc  Allocator
	calc   *abi.Calculator
	logger *zap.Logger
}

// trap aborts the guest call. A handle the guest never owned is a guest
// bug, not a recoverable condition.
func (l *lowering) trap(op string, err error) {
	l.logger.Error("guest trap", zap.String("op", op), zap.Error(err))
	panic(fmt.Sprintf("%s: %v", op, err))
}

// memory wraps the calling module's memory. The layout cache is shared
// across calls.
func (l *lowering) memory(mod api.Module) *abi.Memory {
	return abi.NewMemory(mod.Memory(), l.calc)
}

func u32(v uint64) uint32 {
	return api.DecodeU32(v)
}

// Define registers every host function of h in reg, lowered to the core
// signatures in abi.Interfaces.
func Define(reg *Registry, h *host.Host, alloc Allocator, logger *zap.Logger) error {
	if alloc == nil {
		alloc = CabiRealloc
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &lowering{h: h, alloc: alloc, calc: abi.NewCalculator(), logger: logger}

	handlers := map[string]map[string]api.GoModuleFunc{
		abi.NamespaceGraphicsContext: l.graphicsContext(),
		abi.NamespacePointerEvents:   l.pointerEvents(),
		abi.NamespaceAnimationFrame:  l.animationFrame(),
		abi.NamespacePoll:            l.poll(),
		abi.NamespaceRoot:            l.root(),
	}

	for _, iface := range abi.Interfaces {
		for _, f := range iface.Funcs {
			fn, ok := handlers[iface.Namespace][f.Name]
			if !ok {
				return errors.New(errors.PhaseBinding, errors.KindMissingImport).
					Op(iface.Namespace + "#" + f.Name).
					Detail("no lowering").
					Build()
			}
			sig := f.Signature()
			reg.Define(iface.Namespace, &FuncDef{
				Name:        f.Name,
				Handler:     fn,
				ParamTypes:  sig.Params,
				ResultTypes: sig.Results,
			})
		}
	}
	return nil
}

func (l *lowering) graphicsContext() map[string]api.GoModuleFunc {
	gc := l.h.GraphicsContext
	return map[string]api.GoModuleFunc{
		"[constructor]graphics-context": func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(gc.ConstructorGraphicsContext(ctx))
		},
		"[method]graphics-context.configure": func(ctx context.Context, mod api.Module, stack []uint64) {
			const op = "[method]graphics-context.configure"
			self, retptr := u32(stack[0]), u32(stack[5])
			desc, err := host.DescriptorFromABI(u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4]))
			if err == nil {
				err = gc.MethodGraphicsContextConfigure(ctx, self, desc)
			}
			if werr := l.memory(mod).WriteResultUnit(retptr, host.ErrorCode(err), err != nil); werr != nil {
				l.trap(op, werr)
			}
		},
		"[method]graphics-context.get-current-buffer": func(ctx context.Context, mod api.Module, stack []uint64) {
			const op = "[method]graphics-context.get-current-buffer"
			self, retptr := u32(stack[0]), u32(stack[1])
			buf, err := gc.MethodGraphicsContextGetCurrentBuffer(ctx, self)
			if werr := l.memory(mod).WriteResultHandle(retptr, buf, host.ErrorCode(err), err != nil); werr != nil {
				l.trap(op, werr)
			}
		},
		"[resource-drop]graphics-context": func(ctx context.Context, _ api.Module, stack []uint64) {
			if err := gc.ResourceDropGraphicsContext(ctx, u32(stack[0])); err != nil {
				l.trap("[resource-drop]graphics-context", err)
			}
		},
		"[method]graphics-context-buffer.present": func(ctx context.Context, mod api.Module, stack []uint64) {
			const op = "[method]graphics-context-buffer.present"
			self, retptr := u32(stack[0]), u32(stack[1])
			err := gc.MethodGraphicsContextBufferPresent(ctx, self)
			if werr := l.memory(mod).WriteResultUnit(retptr, host.ErrorCode(err), err != nil); werr != nil {
				l.trap(op, werr)
			}
		},
		"[resource-drop]graphics-context-buffer": func(ctx context.Context, _ api.Module, stack []uint64) {
			if err := gc.ResourceDropGraphicsContextBuffer(ctx, u32(stack[0])); err != nil {
				l.trap("[resource-drop]graphics-context-buffer", err)
			}
		},
	}
}

func (l *lowering) pointerEvents() map[string]api.GoModuleFunc {
	pe := l.h.PointerEvents
	return map[string]api.GoModuleFunc{
		"up": func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(pe.Up(ctx))
		},
		"[method]pointer-up.subscribe": func(ctx context.Context, _ api.Module, stack []uint64) {
			p, err := pe.MethodPointerUpSubscribe(ctx, u32(stack[0]))
			if err != nil {
				l.trap("[method]pointer-up.subscribe", err)
			}
			stack[0] = api.EncodeU32(p)
		},
		"[method]pointer-up.get": func(ctx context.Context, mod api.Module, stack []uint64) {
			const op = "[method]pointer-up.get"
			// A lag has no WIT error case: the guest sees none and the
			// next get continues after the resync.
			ev, ok, err := pe.MethodPointerUpGet(ctx, u32(stack[0]))
			if err != nil && !errors.Is(err, errors.ErrSubscriptionLag) {
				l.trap(op, err)
			}
			if werr := l.memory(mod).WriteOptionPointerEvent(u32(stack[1]), ev.X, ev.Y, ok); werr != nil {
				l.trap(op, werr)
			}
		},
		"[resource-drop]pointer-up": func(ctx context.Context, _ api.Module, stack []uint64) {
			if err := pe.ResourceDropPointerUp(ctx, u32(stack[0])); err != nil {
				l.trap("[resource-drop]pointer-up", err)
			}
		},
	}
}

func (l *lowering) animationFrame() map[string]api.GoModuleFunc {
	af := l.h.AnimationFrame
	return map[string]api.GoModuleFunc{
		"get-frame": func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(af.GetFrame(ctx))
		},
		"[method]frame.subscribe": func(ctx context.Context, _ api.Module, stack []uint64) {
			p, err := af.MethodFrameSubscribe(ctx, u32(stack[0]))
			if err != nil {
				l.trap("[method]frame.subscribe", err)
			}
			stack[0] = api.EncodeU32(p)
		},
		"[method]frame.get": func(ctx context.Context, mod api.Module, stack []uint64) {
			const op = "[method]frame.get"
			info, ok, err := af.MethodFrameGet(ctx, u32(stack[0]))
			if err != nil && !errors.Is(err, errors.ErrSubscriptionLag) {
				l.trap(op, err)
			}
			var ts uint64
			if ok {
				ts = uint64(info.Time.UnixMilli())
			}
			if werr := l.memory(mod).WriteOptionFrameInfo(u32(stack[1]), info.Seq, ts, ok); werr != nil {
				l.trap(op, werr)
			}
		},
		"[resource-drop]frame": func(ctx context.Context, _ api.Module, stack []uint64) {
			if err := af.ResourceDropFrame(ctx, u32(stack[0])); err != nil {
				l.trap("[resource-drop]frame", err)
			}
		},
	}
}

func (l *lowering) poll() map[string]api.GoModuleFunc {
	p := l.h.Poll
	return map[string]api.GoModuleFunc{
		"poll": func(ctx context.Context, mod api.Module, stack []uint64) {
			const op = "poll"
			mem := l.memory(mod)
			handles, err := mem.ReadU32List(u32(stack[0]), u32(stack[1]))
			if err != nil {
				l.trap(op, err)
			}
			ready, err := p.Poll(ctx, handles)
			if err != nil {
				// Nothing to report through a list<u32>: cancellation
				// ends the guest call, a bad handle is a guest bug.
				l.trap(op, err)
			}

			ptr, err := l.alloc(ctx, mod, uint32(len(ready))*4, 4)
			if err != nil {
				l.trap(op, err)
			}
			if err := mem.WriteU32List(ptr, ready); err != nil {
				l.trap(op, err)
			}
			if err := mem.WriteListHeader(u32(stack[2]), ptr, uint32(len(ready))); err != nil {
				l.trap(op, err)
			}
		},
		"[method]pollable.ready": func(ctx context.Context, _ api.Module, stack []uint64) {
			ready, err := p.MethodPollableReady(ctx, u32(stack[0]))
			if err != nil {
				l.trap("[method]pollable.ready", err)
			}
			if ready {
				stack[0] = 1
			} else {
				stack[0] = 0
			}
		},
		"[method]pollable.block": func(ctx context.Context, _ api.Module, stack []uint64) {
			// Lag and cancellation end the wait; the guest sees them on get.
			err := p.MethodPollableBlock(ctx, u32(stack[0]))
			if errors.Is(err, errors.ErrNoSuchHandle) {
				l.trap("[method]pollable.block", err)
			}
		},
		"[resource-drop]pollable": func(ctx context.Context, _ api.Module, stack []uint64) {
			if err := p.ResourceDropPollable(ctx, u32(stack[0])); err != nil {
				l.trap("[resource-drop]pollable", err)
			}
		},
	}
}

func (l *lowering) root() map[string]api.GoModuleFunc {
	ex := l.h.Example
	return map[string]api.GoModuleFunc{
		"print": func(ctx context.Context, mod api.Module, stack []uint64) {
			msg, err := l.memory(mod).ReadString(u32(stack[0]), u32(stack[1]))
			if err != nil {
				l.trap("print", err)
			}
			ex.Print(ctx, msg)
		},
	}
}
