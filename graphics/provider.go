package graphics

// SurfaceProvider is the native surface boundary for the WebGPU backend.
//
// AcquireNextFrame failures should match errors.ErrSurfaceLost,
// errors.ErrSurfaceTimeout or errors.ErrSurfaceOutdated; any other error
// is reported to the guest as a lost surface. All of them are recoverable
// by reconfiguring the context.
type SurfaceProvider interface {
	CreateSurface() (SurfaceID, error)
	Configure(id SurfaceID, cfg SurfaceConfig) error
	AcquireNextFrame(id SurfaceID) (TextureID, error)
	Present(id SurfaceID, tex TextureID) error
	ReleaseSurface(id SurfaceID)
}

// Resizer is implemented by providers whose surfaces go stale when the
// window is resized.
type Resizer interface {
	Resize(width, height uint32)
}
