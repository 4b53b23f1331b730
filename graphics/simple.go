package graphics

import (
	"github.com/gogpu/gg"
)

// SimpleSurface is the in-memory backend: one mutable RGBA pixmap that every
// buffer acquired from the context shares. There is no acquire/present
// exclusivity.
type SimpleSurface struct {
	pixmap *gg.Pixmap
}

// NewSimpleSurface allocates a cleared width x height pixmap.
func NewSimpleSurface(width, height uint32) *SimpleSurface {
	return &SimpleSurface{pixmap: gg.NewPixmap(int(width), int(height))}
}

// Pixmap returns the shared pixel buffer.
func (s *SimpleSurface) Pixmap() *gg.Pixmap {
	return s.pixmap
}

// Resize reallocates the pixmap if the size changed. Pixel contents are not
// preserved across a size change.
func (s *SimpleSurface) Resize(width, height uint32) {
	if s.pixmap.Width() == int(width) && s.pixmap.Height() == int(height) {
		return
	}
	s.pixmap = gg.NewPixmap(int(width), int(height))
}

// Clear fills the surface with c.
func (s *SimpleSurface) Clear(c gg.RGBA) {
	s.pixmap.Clear(c)
}
