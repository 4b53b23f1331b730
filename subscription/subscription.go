package subscription

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/event"
)

// Matcher selects the events a subscription latches and converts them to
// the value Take returns. Events it rejects are consumed and discarded.
type Matcher[T any] func(event.Event) (T, bool)

// Option configures a Subscription.
type Option func(*options)

type options struct {
	logger *zap.Logger
	name   string
}

// WithLogger sets the logger used for lag and release diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName labels log entries from this subscription.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Subscription turns a bus receiver into a one-shot readiness signal with
// a single-slot latch. The cursor is attached when the subscription is
// created, so nothing published after New is missed.
type Subscription[T any] struct {
	rx     *event.Receiver
	match  Matcher[T]
	logger *zap.Logger
	sem    chan struct{} // one drainer at a time
	value  T
	lag    error // pending lag report, consumed by WaitReady, Lag or Take
	mu     sync.Mutex
	has    bool

	released atomic.Bool
}

// New subscribes to bus and returns a subscription latching events
// accepted by match.
func New[T any](bus *event.Bus, match Matcher[T], opts ...Option) *Subscription[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if o.name != "" {
		logger = logger.With(zap.String("subscription", o.name))
	}
	return &Subscription[T]{
		rx:     bus.Subscribe(),
		match:  match,
		logger: logger,
		sem:    make(chan struct{}, 1),
	}
}

// WaitReady blocks until a matching event is latched. It returns at once if
// a value is already latched and not yet taken.
//
// Errors: ErrSubscriptionLag if the bus overwrote events before this
// subscription read them (the cursor has moved to the oldest retained
// event; calling again continues from there), ErrCanceled if the
// subscription is released or ctx ends, ErrClosed once the bus is closed
// and drained. A lag is reported once.
func (s *Subscription[T]) WaitReady(ctx context.Context) error {
	return s.wait(ctx, false)
}

// Block waits like WaitReady but leaves a lag pending, so Ready stays true
// until Lag or Take consumes the report.
func (s *Subscription[T]) Block(ctx context.Context) error {
	return s.wait(ctx, true)
}

func (s *Subscription[T]) wait(ctx context.Context, keepLag bool) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.releaseSem()

	for {
		if s.released.Load() {
			return errors.Canceled(errors.PhaseSubscription, nil)
		}

		s.mu.Lock()
		has, lag := s.has, s.lag
		if !keepLag {
			s.lag = nil
		}
		s.mu.Unlock()
		if lag != nil {
			return lag
		}
		if has {
			return nil
		}

		ev, err := s.rx.Recv(ctx)
		if err != nil {
			err = s.translate(ctx, err)
			if keepLag && errors.Is(err, errors.ErrSubscriptionLag) {
				s.setLag(err)
			}
			return err
		}
		if s.offer(ev) {
			return nil
		}
	}
}

// Ready drains already published events without blocking and reports
// whether a value is latched or a lag is pending. Draining continues past
// a lag, so events published after it are still latched.
func (s *Subscription[T]) Ready() bool {
	if s.released.Load() {
		return true
	}

	select {
	case s.sem <- struct{}{}:
	default:
		// Someone is already draining.
		return s.pending()
	}
	defer s.releaseSem()

	for {
		if s.latched() {
			return true
		}
		ev, ok, err := s.rx.TryRecv()
		if err != nil {
			if errors.Is(err, event.ErrLagged) {
				s.setLag(s.translate(context.Background(), err))
				continue
			}
			// Closed bus or released receiver: a waiter would not block.
			return true
		}
		if !ok {
			return s.pending()
		}
		if s.offer(ev) {
			return true
		}
	}
}

// Lag returns the pending lag report and clears it. It is nil when no lag
// was seen since the last report.
func (s *Subscription[T]) Lag() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.lag
	s.lag = nil
	return err
}

// Take returns and clears the latched value. ok is false if nothing has
// been latched since the last Take. A pending lag is discarded; call Lag
// first to observe it.
func (s *Subscription[T]) Take() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok = s.value, s.has
	var zero T
	s.value = zero
	s.has = false
	s.lag = nil
	return v, ok
}

// Release detaches the cursor and cancels any WaitReady in flight. It is
// safe to call more than once.
func (s *Subscription[T]) Release() {
	if s.released.Swap(true) {
		return
	}
	s.rx.Close()
	s.logger.Debug("subscription released")
}

// Released reports whether Release has been called.
func (s *Subscription[T]) Released() bool {
	return s.released.Load()
}

// Drop releases the subscription when its table entry is removed.
func (s *Subscription[T]) Drop() {
	s.Release()
}

func (s *Subscription[T]) latched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.has
}

func (s *Subscription[T]) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.has || s.lag != nil
}

func (s *Subscription[T]) setLag(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lag = err
}

// offer latches ev if it matches. A value that is already latched and not
// yet taken is kept; the new match is discarded.
func (s *Subscription[T]) offer(ev event.Event) bool {
	v, ok := s.match(ev)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		s.value = v
		s.has = true
	}
	return true
}

func (s *Subscription[T]) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Canceled(errors.PhaseSubscription, ctx.Err())
	case <-s.rx.Done():
		return errors.Canceled(errors.PhaseSubscription, nil)
	}
}

func (s *Subscription[T]) releaseSem() {
	<-s.sem
}

func (s *Subscription[T]) translate(ctx context.Context, err error) error {
	var lag *event.LagError
	switch {
	case errors.As(err, &lag):
		s.logger.Warn("subscription lagged", zap.Uint64("missed", lag.Missed))
		return errors.SubscriptionLag(lag.Missed, err)
	case errors.Is(err, errors.ErrClosed):
		return errors.Wrap(errors.PhaseSubscription, errors.KindClosed, err, "event bus closed")
	case s.released.Load():
		return errors.Canceled(errors.PhaseSubscription, nil)
	case ctx.Err() != nil:
		return errors.Canceled(errors.PhaseSubscription, ctx.Err())
	default:
		return errors.Wrap(errors.PhaseSubscription, errors.KindOf(err), err, "")
	}
}
