package host

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/event"
	"github.com/wippyai/canvas-host/graphics"
	"github.com/wippyai/canvas-host/resource"
	"github.com/wippyai/canvas-host/subscription"
)

const tracerName = "github.com/wippyai/canvas-host/host"

// Interface is one import namespace served by the host.
type Interface interface {
	Namespace() string
	Register() map[string]any
}

// Options configures a Host. The zero value is usable.
type Options struct {
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	// Bus carries host events. When nil the host creates one with
	// BusCapacity and closes it on Close.
	Bus         *event.Bus
	Provider    graphics.SurfaceProvider
	PresentHook graphics.PresentFunc
	// OnPrint receives guest print lines in addition to the log.
	OnPrint     func(string)
	BusCapacity int
}

// Host is the explicit host state shared by every interface: the resource
// table, the event bus and the graphics state machine. Guest operations are
// serialized by one dispatch lock; blocking waits run outside it.
type Host struct {
	table     *resource.UnifiedTable
	bus       *event.Bus
	graphics  *graphics.Manager
	pointers  *resource.Typed[*subscription.PointerUpSubscription]
	frames    *resource.Typed[*subscription.FrameSubscription]
	pollables *resource.Typed[*subscription.Pollable]
	provider  graphics.SurfaceProvider
	logger    *zap.Logger
	tracer    trace.Tracer
	onPrint   func(string)

	GraphicsContext *GraphicsContextHost
	PointerEvents   *PointerEventsHost
	AnimationFrame  *AnimationFrameHost
	Poll            *PollHost
	Example         *ExampleHost

	mu      sync.Mutex
	ownsBus bool
}

// New builds a host from opts.
func New(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	h := &Host{
		table:    resource.NewTable(),
		bus:      opts.Bus,
		provider: opts.Provider,
		logger:   logger,
		tracer:   tp.Tracer(tracerName),
		onPrint:  opts.OnPrint,
	}
	if h.bus == nil {
		h.bus = event.NewBus(opts.BusCapacity)
		h.ownsBus = true
	}

	gopts := []graphics.Option{graphics.WithLogger(logger.Named("graphics"))}
	if opts.Provider != nil {
		gopts = append(gopts, graphics.WithProvider(opts.Provider))
	}
	if opts.PresentHook != nil {
		gopts = append(gopts, graphics.WithPresentHook(opts.PresentHook))
	}
	h.graphics = graphics.NewManager(h.table, gopts...)
	h.pointers = resource.NewTyped[*subscription.PointerUpSubscription](h.table, resource.TypePointerUp)
	h.frames = resource.NewTyped[*subscription.FrameSubscription](h.table, resource.TypeFrame)
	h.pollables = resource.NewTyped[*subscription.Pollable](h.table, resource.TypePollable)

	if logger.Core().Enabled(zap.DebugLevel) {
		h.table.Subscribe(resource.NewLogObserver(logger.Named("table"), resource.TypeNames))
	}

	h.GraphicsContext = &GraphicsContextHost{h: h}
	h.PointerEvents = &PointerEventsHost{h: h}
	h.AnimationFrame = &AnimationFrameHost{h: h}
	h.Poll = &PollHost{h: h}
	h.Example = &ExampleHost{h: h}
	return h
}

// Interfaces returns every namespace the host serves.
func (h *Host) Interfaces() []Interface {
	return []Interface{h.GraphicsContext, h.PointerEvents, h.AnimationFrame, h.Poll, h.Example}
}

// Table returns the resource table.
func (h *Host) Table() *resource.UnifiedTable {
	return h.table
}

// Bus returns the event bus.
func (h *Host) Bus() *event.Bus {
	return h.bus
}

// Graphics returns the graphics context manager.
func (h *Host) Graphics() *graphics.Manager {
	return h.graphics
}

// Logger returns the host logger.
func (h *Host) Logger() *zap.Logger {
	return h.logger
}

// WatchResize forwards resize events to the surface provider until ctx
// ends, so WebGPU surfaces report outdated after the window changes size.
func (h *Host) WatchResize(ctx context.Context) error {
	resizer, ok := h.provider.(graphics.Resizer)
	if !ok {
		<-ctx.Done()
		return nil
	}

	sub := subscription.New(h.bus, subscription.Resize,
		subscription.WithLogger(h.logger), subscription.WithName("resize"))
	defer sub.Release()

	for {
		err := sub.WaitReady(ctx)
		switch {
		case err == nil:
			if size, ok := sub.Take(); ok {
				resizer.Resize(size.Width, size.Height)
			}
		case ctx.Err() != nil:
			return nil
		case isLag(err):
			continue
		default:
			return err
		}
	}
}

// Close drops every guest resource, which cancels pending waits, and
// closes the bus if the host created it.
func (h *Host) Close() error {
	err := h.table.Close()
	if h.ownsBus {
		h.bus.Close()
	}
	return err
}

func (h *Host) lock() func() {
	h.mu.Lock()
	return h.mu.Unlock
}
