// Package canvashost is a WebAssembly host that gives guest components a
// drawable surface and input events.
//
// Guests import three capability interfaces (graphics-context, pointer-events
// and request-animation-frame) plus wasi:io/poll and a root print function.
// Every guest-visible object lives in one generational resource table; events
// reach guests through a multicast bus and readiness latches.
//
// # Architecture Overview
//
//	canvashost/
//	├── errors/        Structured error types (phase, kind, handle)
//	├── resource/      Generational handle table with ownership trees
//	├── event/         Bounded multicast bus of host events
//	├── subscription/  Readiness latches and pollables over bus receivers
//	├── graphics/      Graphics-context state machine and surface backends
//	├── abi/           Canonical ABI layouts and guest memory access
//	├── host/          Dispatch layer: one Go type per imported interface
//	├── binding/       wazero host modules and guest instantiation
//	├── source/        Frame ticker and input publishers
//	├── config/        Environment configuration and logger construction
//	├── telemetry/     OpenTelemetry tracer provider setup
//	└── cmd/canvas/    Terminal demo host
//
// # Quick Start
//
// Run a guest against a host:
//
//	h := host.New(host.Options{Logger: logger})
//	defer h.Close()
//
//	rt := wazero.NewRuntime(ctx)
//	defer rt.Close(ctx)
//
//	if err := binding.Run(ctx, rt, h, wasmBytes, binding.Options{}); err != nil {
//	    log.Fatal(err)
//	}
//
// Events are fed from outside the guest:
//
//	go (&source.Ticker{Bus: h.Bus()}).Run(ctx)
//	source.PublishPointerUp(h.Bus(), x, y)
//
// # Thread Safety
//
// Host operations are serialized by a single dispatch lock. Blocking waits
// (pollable block, poll) release it while parked, so publishers and other
// guest calls make progress.
package canvashost
