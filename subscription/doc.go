// Package subscription bridges the multicast event bus to one-shot
// readiness signals.
//
// Each Subscription owns a private cursor into the bus, attached at
// creation, and a single-slot latch. WaitReady suspends the calling
// goroutine until an event accepted by the subscription's Matcher arrives
// and latches it; events the matcher rejects are consumed so they never
// block later detection. Take returns and clears the latch. Release
// detaches the cursor and cancels any WaitReady in flight.
//
//	sub := subscription.NewPointerUp(bus, logger)
//	defer sub.Release()
//
//	if err := sub.WaitReady(ctx); err != nil {
//		return err
//	}
//	pos, _ := sub.Take()
//
// Every subscription sees every event independently: two pointer
// subscriptions both observe the same click.
//
// When the bus overwrites events a subscription has not read, the cursor
// moves to the oldest retained event and the lag is reported once, either
// by WaitReady or by Lag after Ready or Block observed it.
package subscription
