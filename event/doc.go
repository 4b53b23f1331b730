// Package event provides the multicast bus that carries host events
// (frame ticks, pointer releases, surface resizes) to guest subscriptions.
//
// A Bus keeps a bounded ring of recent events. Each Receiver has its own
// cursor, so every receiver sees every event published after it attached,
// in order. Publishers never block; a receiver that falls too far behind
// gets a *LagError on its next Recv and resumes from the oldest event still
// retained.
//
//	bus := event.NewBus(16)
//	rx := bus.Subscribe()
//	defer rx.Close()
//
//	bus.Publish(event.PointerUp(10, 20))
//	ev, err := rx.Recv(ctx)
package event
