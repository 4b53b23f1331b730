package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/canvas-host/binding"
	"github.com/wippyai/canvas-host/config"
	"github.com/wippyai/canvas-host/event"
	"github.com/wippyai/canvas-host/graphics"
	"github.com/wippyai/canvas-host/host"
	"github.com/wippyai/canvas-host/resource"
	"github.com/wippyai/canvas-host/source"
	"github.com/wippyai/canvas-host/telemetry"
)

type options struct {
	wasmFile string
	backend  string
	logFile  string
	duration time.Duration
	width    uint
	height   uint
	headless bool
}

func main() {
	var opts options
	flag.StringVar(&opts.wasmFile, "wasm", "", "Path to a core wasm guest (default: built-in ripples guest)")
	flag.StringVar(&opts.backend, "backend", "", "Backend: simple-buffer or webgpu (overrides CANVAS_BACKEND)")
	flag.StringVar(&opts.logFile, "log", "", "Write logs to this file")
	flag.DurationVar(&opts.duration, "duration", 0, "Stop after this long (headless default: 2s)")
	flag.UintVar(&opts.width, "width", 0, "Canvas width in pixels (overrides CANVAS_WIDTH)")
	flag.UintVar(&opts.height, "height", 0, "Canvas height in pixels (overrides CANVAS_HEIGHT)")
	flag.BoolVar(&opts.headless, "headless", false, "Run without the terminal UI")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.width != 0 {
		cfg.Width = uint32(opts.width)
	}
	if opts.height != 0 {
		cfg.Height = uint32(opts.height)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	interactive := !opts.headless && term.IsTerminal(int(os.Stdout.Fd()))
	logger, err := newLogger(cfg, opts.logFile, interactive)
	if err != nil {
		return err
	}
	defer logger.Sync()
	event.SetLogger(logger.Named("event"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if !interactive {
		d := opts.duration
		if d == 0 {
			d = 2 * time.Second
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	tp, shutdown, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdown(context.Background())

	cols, rows := 80, 24+chromeRows
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		cols, rows = w, h
	}
	win := &windowSize{}
	win.set(canvasSize(cols, rows))
	desc := cfg.Descriptor(win.get())
	follow := win
	if cfg.Width != 0 || cfg.Height != 0 {
		// A fixed canvas size does not follow the terminal.
		follow = nil
	}

	var provider graphics.SurfaceProvider
	if desc.Backend == graphics.BackendWebGPU {
		provider = graphics.NewHeadlessProvider(logger.Named("surface"))
	}

	frames := make(chan string, 1)
	h := host.New(host.Options{
		Logger:         logger,
		TracerProvider: tp,
		Provider:       provider,
		BusCapacity:    cfg.BusCapacity,
		PresentHook: func(_ resource.Handle, buf *graphics.Buffer) {
			if !interactive || buf.Pixels == nil {
				return
			}
			// Keep only the newest frame if the UI falls behind.
			view := renderPixmap(buf.Pixels)
			select {
			case frames <- view:
			default:
				select {
				case <-frames:
				default:
				}
				frames <- view
			}
		},
	})
	defer h.Close()

	logger.Info("canvas host starting",
		zap.Stringer("backend", desc.Backend),
		zap.Uint32("width", desc.Width),
		zap.Uint32("height", desc.Height),
		zap.Bool("interactive", interactive))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	ticker := &source.Ticker{Bus: h.Bus(), Interval: cfg.FrameInterval, Logger: logger.Named("ticker")}
	g.Go(func() error { return ticker.Run(gctx) })
	g.Go(func() error { return h.WatchResize(gctx) })

	title := "ripples"
	if opts.wasmFile != "" {
		title = opts.wasmFile
	}

	var program *tea.Program
	if interactive {
		program = tea.NewProgram(newCanvasModel(h.Bus(), win, title),
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(gctx))

		g.Go(func() error {
			defer cancel()
			_, err := program.Run()
			if stderrors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case view := <-frames:
					program.Send(frameMsg(view))
				}
			}
		})
	}

	g.Go(func() error {
		err := runGuest(gctx, h, opts.wasmFile, desc, follow, logger)
		if program != nil {
			program.Send(guestDoneMsg{err: err})
			return nil
		}
		cancel()
		return err
	})

	err = g.Wait()
	logger.Info("canvas host stopped", zap.Int("live_resources", h.Table().Len()))
	return err
}

func runGuest(ctx context.Context, h *host.Host, wasmFile string, desc graphics.Descriptor, win *windowSize, logger *zap.Logger) error {
	if wasmFile == "" {
		g := &ripples{h: h, logger: logger.Named("guest"), desc: desc}
		if win != nil {
			g.size = win.get
		}
		err := g.Run(ctx)
		logger.Info("guest finished", zap.Uint64("presented", g.presented))
		return err
	}

	wasm, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read guest: %w", err)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer rt.Close(context.WithoutCancel(ctx))

	err = binding.Run(ctx, rt, h, wasm, binding.Options{Logger: logger.Named("binding")})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func newLogger(cfg config.Config, logFile string, interactive bool) (*zap.Logger, error) {
	if logFile != "" {
		return cfg.NewLogger(logFile)
	}
	if interactive {
		// stderr belongs to the terminal UI.
		return zap.NewNop(), nil
	}
	return cfg.NewLogger()
}

// windowSize is the latest canvas size, shared by the UI and the guest.
type windowSize struct {
	mu            sync.Mutex
	width, height uint32
}

func (w *windowSize) set(width, height uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = width, height
}

func (w *windowSize) get() (uint32, uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}
