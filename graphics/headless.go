package graphics

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
)

// HeadlessProvider is a software SurfaceProvider. Surfaces have no pixels;
// it tracks configuration, acquired textures and presents so the WebGPU
// path can run without a GPU. After Resize every surface reports outdated
// until it is reconfigured; after Lose every surface reports lost.
type HeadlessProvider struct {
	surfaces map[SurfaceID]*headlessSurface
	logger   *zap.Logger
	next     SurfaceID
	mu       sync.Mutex
}

type headlessSurface struct {
	config     SurfaceConfig
	acquired   TextureID
	nextTex    TextureID
	presented  uint64
	configured bool
	outdated   bool
	lost       bool
}

// NewHeadlessProvider creates an empty provider.
func NewHeadlessProvider(logger *zap.Logger) *HeadlessProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeadlessProvider{
		surfaces: make(map[SurfaceID]*headlessSurface),
		logger:   logger,
	}
}

func (p *HeadlessProvider) CreateSurface() (SurfaceID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.next++
	p.surfaces[p.next] = &headlessSurface{}
	return p.next, nil
}

func (p *HeadlessProvider) Configure(id SurfaceID, cfg SurfaceConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.surfaces[id]
	if !ok {
		return errors.Surface(errors.KindSurfaceLost, 0, nil)
	}
	s.config = cfg
	s.configured = true
	s.outdated = false
	s.lost = false
	s.acquired = 0
	p.logger.Debug("surface configured",
		zap.Uint32("surface", uint32(id)),
		zap.Uint32("width", cfg.Size.Width),
		zap.Uint32("height", cfg.Size.Height),
		zap.Stringer("present_mode", cfg.PresentMode))
	return nil
}

func (p *HeadlessProvider) AcquireNextFrame(id SurfaceID) (TextureID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.surfaces[id]
	switch {
	case !ok, s.lost:
		return 0, errors.Surface(errors.KindSurfaceLost, 0, nil)
	case !s.configured:
		return 0, errors.Surface(errors.KindSurfaceTimeout, 0, nil)
	case s.outdated:
		return 0, errors.Surface(errors.KindSurfaceOutdated, 0, nil)
	}

	s.nextTex++
	s.acquired = s.nextTex
	return s.acquired, nil
}

func (p *HeadlessProvider) Present(id SurfaceID, tex TextureID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.surfaces[id]
	if !ok || s.lost {
		return errors.Surface(errors.KindSurfaceLost, 0, nil)
	}
	if s.outdated {
		return errors.Surface(errors.KindSurfaceOutdated, 0, nil)
	}
	if tex == 0 || tex != s.acquired {
		return errors.New(errors.PhaseGraphics, errors.KindInvalidInput).
			Detail("texture %d is not the current frame", tex).
			Build()
	}
	s.acquired = 0
	s.presented++
	return nil
}

func (p *HeadlessProvider) ReleaseSurface(id SurfaceID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.surfaces, id)
}

// Resize marks every configured surface of a different size outdated.
func (p *HeadlessProvider) Resize(width, height uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.surfaces {
		if s.configured && (s.config.Size.Width != width || s.config.Size.Height != height) {
			s.outdated = true
		}
	}
	p.logger.Debug("surfaces resized", zap.Uint32("width", width), zap.Uint32("height", height))
}

// Lose simulates device loss on every surface.
func (p *HeadlessProvider) Lose() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.surfaces {
		s.lost = true
	}
	p.logger.Warn("surfaces lost")
}

// Presented returns how many frames were presented on a surface.
func (p *HeadlessProvider) Presented(id SurfaceID) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.surfaces[id]; ok {
		return s.presented
	}
	return 0
}

// Surfaces returns the number of live surfaces.
func (p *HeadlessProvider) Surfaces() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.surfaces)
}
