package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
)

// DefaultCapacity is the ring size used when NewBus is given zero.
const DefaultCapacity = 16

// Bus is a bounded multicast channel. Every Receiver sees every event
// published after it subscribed, in publish order. Publish never blocks:
// when a receiver falls more than Capacity events behind, the oldest
// events are overwritten and that receiver's next Recv reports a LagError.
type Bus struct {
	ring      []Event
	notify    chan struct{}
	logger    *zap.Logger
	head      uint64 // seq of the next published event
	lagged    atomic.Uint64
	receivers int
	mu        sync.Mutex
	closed    bool
}

// NewBus creates a bus that retains up to capacity events per receiver.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		ring:   make([]Event, capacity),
		notify: make(chan struct{}),
		logger: Logger(),
	}
}

// Publish stamps ev with its sequence number and publish time, stores it
// and wakes every waiting receiver. It returns the number of receivers
// attached at publish time, or 0 if the bus is closed.
func (b *Bus) Publish(ev Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	ev.Seq = b.head
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.ring[b.head%uint64(len(b.ring))] = ev
	b.head++

	close(b.notify)
	b.notify = make(chan struct{})
	return b.receivers
}

// Subscribe attaches a receiver positioned at the next event to be
// published. Events published earlier are never delivered to it.
func (b *Bus) Subscribe() *Receiver {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.receivers++
	}
	return &Receiver{
		bus:  b,
		next: b.head,
		done: make(chan struct{}),
	}
}

// Close wakes every receiver. Receivers drain what is still buffered and
// then get a closed error.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// Closed reports whether Close has been called.
func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Capacity returns the ring size.
func (b *Bus) Capacity() int {
	return len(b.ring)
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Published: b.head,
		Lagged:    b.lagged.Load(),
		Receivers: b.receivers,
		Capacity:  len(b.ring),
	}
}

// next returns the event at cursor, or reports that none is buffered yet.
// A cursor that fell off the ring is advanced to the oldest retained event
// and a LagError is returned. Caller holds mu.
func (b *Bus) next(cursor *uint64) (Event, bool, error) {
	if *cursor >= b.head {
		return Event{}, false, nil
	}

	size := uint64(len(b.ring))
	var oldest uint64
	if b.head > size {
		oldest = b.head - size
	}
	if *cursor < oldest {
		missed := oldest - *cursor
		*cursor = oldest
		b.lagged.Add(missed)
		b.logger.Warn("receiver lagged", zap.Uint64("missed", missed), zap.Uint64("resume_seq", oldest))
		return Event{}, false, &LagError{Missed: missed}
	}

	ev := b.ring[*cursor%size]
	*cursor++
	return ev, true, nil
}

// Receiver is one subscriber's cursor into a Bus.
type Receiver struct {
	bus  *Bus
	done chan struct{}
	next uint64
	mu   sync.Mutex
	once sync.Once
}

// Recv blocks until the next event is available. It fails with a *LagError
// if events were overwritten before this receiver saw them, with a
// canceled error if ctx ends or the receiver is closed, and with a closed
// error once the bus is closed and drained.
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		select {
		case <-r.done:
			return Event{}, errors.Canceled(errors.PhaseEvent, nil)
		default:
		}

		r.bus.mu.Lock()
		ev, ok, err := r.bus.next(&r.next)
		closed := r.bus.closed
		wake := r.bus.notify
		r.bus.mu.Unlock()

		if err != nil {
			return Event{}, err
		}
		if ok {
			return ev, nil
		}
		if closed {
			return Event{}, errors.Closed(errors.PhaseEvent, "event bus")
		}

		select {
		case <-ctx.Done():
			return Event{}, errors.Canceled(errors.PhaseEvent, ctx.Err())
		case <-r.done:
			return Event{}, errors.Canceled(errors.PhaseEvent, nil)
		case <-wake:
		}
	}
}

// TryRecv returns the next buffered event without waiting. ok is false if
// nothing is buffered.
func (r *Receiver) TryRecv() (ev Event, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.done:
		return Event{}, false, errors.Canceled(errors.PhaseEvent, nil)
	default:
	}

	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()

	ev, ok, err = r.bus.next(&r.next)
	if err == nil && !ok && r.bus.closed {
		err = errors.Closed(errors.PhaseEvent, "event bus")
	}
	return ev, ok, err
}

// Pending returns how many events are buffered for this receiver,
// including ones already overwritten.
func (r *Receiver) Pending() uint64 {
	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()
	return r.bus.head - r.next
}

// Done is closed when the receiver is closed.
func (r *Receiver) Done() <-chan struct{} {
	return r.done
}

// Close detaches the receiver and wakes a blocked Recv. Safe to call more
// than once.
func (r *Receiver) Close() {
	r.once.Do(func() {
		close(r.done)
		r.bus.mu.Lock()
		if !r.bus.closed {
			r.bus.receivers--
		}
		r.bus.mu.Unlock()
	})
}
