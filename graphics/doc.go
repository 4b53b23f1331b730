// Package graphics implements the graphics context state machine.
//
// A context is created unconfigured. Configure selects one of two
// backends:
//
//   - BackendWebGPU: a native surface from a SurfaceProvider. Each
//     CurrentBuffer acquires the next presentable texture; acquisition can
//     fail with a lost, timed out or outdated surface, all recoverable by
//     reconfiguring.
//   - BackendSimpleBuffer: one in-memory gg.Pixmap shared by every buffer
//     acquired from the context.
//
// Buffers are child handles of their context in the resource table, so
// dropping a context invalidates its buffers, and reconfiguring a context
// invalidates buffers acquired under the previous configuration.
package graphics
