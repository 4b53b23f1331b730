package graphics

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/resource"
)

// PresentFunc observes buffers as they are presented.
type PresentFunc func(ctx resource.Handle, buf *Buffer)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithProvider sets the native surface provider used by the WebGPU backend.
// Without one, configuring a WebGPU context fails.
func WithProvider(p SurfaceProvider) Option {
	return func(m *Manager) {
		m.provider = p
	}
}

// WithPresentHook registers fn to run after every successful Present.
func WithPresentHook(fn PresentFunc) Option {
	return func(m *Manager) {
		m.onPresent = fn
	}
}

// Manager runs the graphics context state machine over a resource table.
// Contexts start unconfigured; Configure selects a backend; CurrentBuffer
// acquires a frame target as a child handle of the context.
type Manager struct {
	contexts  *resource.Typed[*Context]
	buffers   *resource.Typed[*Buffer]
	table     *resource.UnifiedTable
	provider  SurfaceProvider
	onPresent PresentFunc
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewManager creates a manager storing contexts and buffers in table.
func NewManager(table *resource.UnifiedTable, opts ...Option) *Manager {
	m := &Manager{
		contexts: resource.NewTyped[*Context](table, resource.TypeGraphicsContext),
		buffers:  resource.NewTyped[*Buffer](table, resource.TypeGraphicsBuffer),
		table:    table,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New creates an unconfigured context.
func (m *Manager) New() resource.Handle {
	return m.contexts.Insert(&Context{})
}

// Context resolves a context handle.
func (m *Manager) Context(h resource.Handle) (*Context, error) {
	return m.contexts.Get(h)
}

// Configure selects and sizes the backend of context h. Buffers acquired
// before the call are invalidated, so no buffer from an old backend can be
// resolved against the new one. Calling it again replaces the backend.
func (m *Manager) Configure(h resource.Handle, desc Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.contexts.Get(h)
	if err != nil {
		return err
	}
	if err := desc.validate(); err != nil {
		return err
	}

	n, err := m.table.RemoveChildren(h)
	if err != nil {
		return err
	}
	if n > 0 {
		m.logger.Debug("invalidated buffers on reconfigure",
			zap.Uint32("context", uint32(h)), zap.Int("buffers", n))
	}

	var kind *Kind
	switch desc.Backend {
	case BackendWebGPU:
		kind, err = m.configureWebGPU(h, c, desc)
	case BackendSimpleBuffer:
		kind = m.configureSimple(c, desc)
	}
	if err != nil {
		return err
	}
	c.kind = kind

	m.logger.Debug("context configured",
		zap.Uint32("context", uint32(h)),
		zap.Stringer("backend", desc.Backend),
		zap.Uint32("width", desc.Width),
		zap.Uint32("height", desc.Height))
	return nil
}

func (m *Manager) configureWebGPU(h resource.Handle, c *Context, desc Descriptor) (*Kind, error) {
	if m.provider == nil {
		return nil, errors.New(errors.PhaseGraphics, errors.KindInvalidInput).
			Handle(uint32(h)).
			Detail("no surface provider for webgpu backend").
			Build()
	}

	var sid SurfaceID
	if c.kind != nil && c.kind.Backend == BackendWebGPU {
		sid = c.kind.Surface
	} else {
		var err error
		if sid, err = m.provider.CreateSurface(); err != nil {
			return nil, surfaceError(h, err)
		}
	}

	cfg := surfaceConfig(desc)
	if err := m.provider.Configure(sid, cfg); err != nil {
		if c.kind == nil || c.kind.Surface != sid {
			m.provider.ReleaseSurface(sid)
		}
		return nil, surfaceError(h, err)
	}

	provider := m.provider
	c.release = func() { provider.ReleaseSurface(sid) }
	return &Kind{Backend: BackendWebGPU, Surface: sid, Config: cfg}, nil
}

func (m *Manager) configureSimple(c *Context, desc Descriptor) *Kind {
	if c.kind != nil && c.kind.Backend == BackendSimpleBuffer {
		c.kind.Simple.Resize(desc.Width, desc.Height)
		return c.kind
	}
	// Switching away from webgpu gives the surface back.
	c.Drop()
	return &Kind{
		Backend: BackendSimpleBuffer,
		Simple:  NewSimpleSurface(desc.Width, desc.Height),
	}
}

// CurrentBuffer acquires the current frame target of context h and returns
// it as a new child handle of h. An unconfigured context fails with
// errors.ErrUnconfigured; a native acquire failure is returned as a surface
// error the guest can recover from by reconfiguring.
func (m *Manager) CurrentBuffer(h resource.Handle) (resource.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.contexts.Get(h)
	if err != nil {
		return 0, err
	}
	if c.kind == nil {
		return 0, errors.Unconfigured(uint32(h))
	}

	var buf *Buffer
	switch c.kind.Backend {
	case BackendWebGPU:
		tex, err := m.provider.AcquireNextFrame(c.kind.Surface)
		if err != nil {
			m.logger.Warn("acquire next frame failed",
				zap.Uint32("context", uint32(h)), zap.Error(err))
			return 0, surfaceError(h, err)
		}
		buf = &Buffer{Backend: BackendWebGPU, Texture: tex, Surface: c.kind.Surface}
	case BackendSimpleBuffer:
		buf = &Buffer{Backend: BackendSimpleBuffer, Pixels: c.kind.Simple.Pixmap()}
	}

	return m.buffers.InsertChild(buf, h)
}

// Buffer resolves a buffer handle.
func (m *Manager) Buffer(h resource.Handle) (*Buffer, error) {
	return m.buffers.Get(h)
}

// Present shows buffer h and consumes its handle. Simple buffers have
// nothing to present natively; the present hook still runs for them.
func (m *Manager) Present(h resource.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, err := m.buffers.Get(h)
	if err != nil {
		return err
	}
	owner, err := m.table.Owner(h)
	if err != nil {
		return err
	}

	if buf.Backend == BackendWebGPU {
		if err := m.provider.Present(buf.Surface, buf.Texture); err != nil {
			return surfaceError(owner, err)
		}
	}
	if _, err := m.buffers.Remove(h); err != nil {
		return err
	}
	if m.onPresent != nil {
		m.onPresent(owner, buf)
	}
	return nil
}

// Drop removes context h and every buffer it owns. Dropping a handle that
// was already released is a no-op.
func (m *Manager) Drop(h resource.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.contexts.Remove(h)
	return ignoreStale(err)
}

// DropBuffer removes buffer h. Dropping a buffer whose context is already
// gone is a no-op.
func (m *Manager) DropBuffer(h resource.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.buffers.Remove(h)
	return ignoreStale(err)
}

func ignoreStale(err error) error {
	if errors.KindOf(err) == errors.KindStaleHandle {
		return nil
	}
	return err
}

func surfaceError(h resource.Handle, err error) error {
	switch kind := errors.KindOf(err); kind {
	case errors.KindSurfaceLost, errors.KindSurfaceTimeout, errors.KindSurfaceOutdated:
		return errors.Surface(kind, uint32(h), err)
	default:
		return errors.Surface(errors.KindSurfaceLost, uint32(h), err)
	}
}
