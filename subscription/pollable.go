package subscription

import "context"

// Waiter is the readiness side of a subscription.
type Waiter interface {
	Ready() bool
	Block(ctx context.Context) error
}

// Pollable exposes a subscription's readiness as a wasi:io/poll pollable.
// It does not own the subscription: dropping the pollable leaves the
// subscription attached, and releasing the subscription makes the
// pollable permanently ready so no poller stays parked.
type Pollable struct {
	w Waiter
}

// NewPollable returns a pollable reporting w's readiness.
func NewPollable(w Waiter) *Pollable {
	return &Pollable{w: w}
}

// Ready reports whether Block would return without waiting.
func (p *Pollable) Ready() bool {
	return p.w.Ready()
}

// Block waits until the subscription is ready, released, or ctx ends. A
// lag ends the wait and keeps the pollable ready until it is reported.
func (p *Pollable) Block(ctx context.Context) error {
	return p.w.Block(ctx)
}

// Drop implements resource.Dropper. The subscription is owned elsewhere.
func (p *Pollable) Drop() {}
