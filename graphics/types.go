package graphics

import (
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"

	"github.com/wippyai/canvas-host/errors"
)

// Backend selects how a graphics context produces frame buffers.
type Backend uint8

const (
	BackendWebGPU Backend = iota + 1
	BackendSimpleBuffer
)

func (b Backend) String() string {
	switch b {
	case BackendWebGPU:
		return "webgpu"
	case BackendSimpleBuffer:
		return "simple-buffer"
	default:
		return "unknown"
	}
}

// ParseBackend accepts "webgpu" or "simple-buffer".
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webgpu", "gpu":
		return BackendWebGPU, nil
	case "simple-buffer", "simple", "buffer":
		return BackendSimpleBuffer, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseGraphics, "unknown backend "+s)
	}
}

// PresentMode controls how presented frames are queued.
type PresentMode uint8

const (
	PresentModeFifo PresentMode = iota
	PresentModeImmediate
	PresentModeMailbox
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "fifo"
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	default:
		return "unknown"
	}
}

// ParsePresentMode accepts "fifo", "immediate" or "mailbox".
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fifo", "vsync":
		return PresentModeFifo, nil
	case "immediate":
		return PresentModeImmediate, nil
	case "mailbox":
		return PresentModeMailbox, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseGraphics, "unknown present mode "+s)
	}
}

// SurfaceID names a native surface owned by a SurfaceProvider.
type SurfaceID uint32

// TextureID names one acquired surface texture.
type TextureID uint32

// Descriptor is the configure request for a graphics context.
// A zero Format picks the backend's preferred format.
type Descriptor struct {
	Backend     Backend
	Width       uint32
	Height      uint32
	PresentMode PresentMode
	Format      gputypes.TextureFormat
}

func (d Descriptor) validate() error {
	if d.Backend != BackendWebGPU && d.Backend != BackendSimpleBuffer {
		return errors.InvalidInput(errors.PhaseGraphics, "backend not set")
	}
	if d.Width == 0 || d.Height == 0 {
		return errors.New(errors.PhaseGraphics, errors.KindInvalidInput).
			Detail("size %dx%d", d.Width, d.Height).
			Build()
	}
	return nil
}

// SurfaceConfig is what a WebGPU surface is configured with.
type SurfaceConfig struct {
	Size        gputypes.Extent3D
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
	PresentMode PresentMode
}

func surfaceConfig(d Descriptor) SurfaceConfig {
	format := d.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return SurfaceConfig{
		Size: gputypes.Extent3D{
			Width:              d.Width,
			Height:             d.Height,
			DepthOrArrayLayers: 1,
		},
		Format:      format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: d.PresentMode,
	}
}

// Kind is the configured backend state of a context. Exactly one of
// Surface and Simple is meaningful, selected by Backend.
type Kind struct {
	Simple  *SimpleSurface
	Config  SurfaceConfig
	Surface SurfaceID
	Backend Backend
}

// Buffer is a frame target acquired from a context, tagged with the
// backend that produced it so it can be presented without consulting the
// parent context.
type Buffer struct {
	Pixels  *gg.Pixmap
	Texture TextureID
	Surface SurfaceID
	Backend Backend
}

// Context is the per-handle state of a graphics context. kind is nil
// until the first Configure.
type Context struct {
	kind    *Kind
	release func()
}

// Kind returns the configured backend state, or nil.
func (c *Context) Kind() *Kind {
	return c.kind
}

// Configured reports whether a backend has been selected.
func (c *Context) Configured() bool {
	return c.kind != nil
}

// Drop releases the native surface, if any, when the context is removed.
func (c *Context) Drop() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}
