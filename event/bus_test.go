package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	canvaserrors "github.com/wippyai/canvas-host/errors"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus(4)
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	if n := bus.Publish(PointerUp(1, 2)); n != 2 {
		t.Errorf("Publish receivers = %d, want 2", n)
	}

	ctx := context.Background()
	for _, rx := range []*Receiver{a, b} {
		ev, err := rx.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if ev.Kind != KindPointerUp || ev.Pointer != (PointerEvent{X: 1, Y: 2}) {
			t.Errorf("got %+v", ev)
		}
		if ev.Seq != 0 {
			t.Errorf("Seq = %d, want 0", ev.Seq)
		}
		if ev.Time.IsZero() {
			t.Error("Publish should stamp Time")
		}
	}
}

func TestBus_NoReplayBeforeSubscribe(t *testing.T) {
	bus := NewBus(4)
	bus.Publish(Frame())
	bus.Publish(Frame())

	rx := bus.Subscribe()
	defer rx.Close()

	if _, ok, err := rx.TryRecv(); ok || err != nil {
		t.Fatalf("TryRecv = ok %v err %v, want nothing", ok, err)
	}

	bus.Publish(Resize(640, 480))
	ev, ok, err := rx.TryRecv()
	if err != nil || !ok {
		t.Fatalf("TryRecv = ok %v err %v", ok, err)
	}
	if ev.Kind != KindResize || ev.Seq != 2 {
		t.Errorf("got %+v, want resize seq 2", ev)
	}
}

func TestBus_Order(t *testing.T) {
	bus := NewBus(8)
	rx := bus.Subscribe()
	defer rx.Close()

	for i := int32(0); i < 5; i++ {
		bus.Publish(PointerUp(i, i))
	}
	for i := int32(0); i < 5; i++ {
		ev, err := rx.Recv(context.Background())
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if ev.Pointer.X != i {
			t.Errorf("event %d has X %d", i, ev.Pointer.X)
		}
	}
}

func TestBus_Lag(t *testing.T) {
	bus := NewBus(2)
	rx := bus.Subscribe()
	defer rx.Close()

	for i := int32(0); i < 5; i++ {
		bus.Publish(PointerUp(i, 0))
	}

	_, err := rx.Recv(context.Background())
	var lag *LagError
	if !errors.As(err, &lag) {
		t.Fatalf("Recv err = %v, want *LagError", err)
	}
	if lag.Missed != 3 {
		t.Errorf("Missed = %d, want 3", lag.Missed)
	}
	if !errors.Is(err, ErrLagged) {
		t.Error("LagError should match ErrLagged")
	}

	// Resumes at the oldest retained event.
	for _, want := range []int32{3, 4} {
		ev, err := rx.Recv(context.Background())
		if err != nil {
			t.Fatalf("Recv after lag: %v", err)
		}
		if ev.Pointer.X != want {
			t.Errorf("X = %d, want %d", ev.Pointer.X, want)
		}
	}

	if got := bus.Stats().Lagged; got != 3 {
		t.Errorf("Stats.Lagged = %d, want 3", got)
	}
}

func TestBus_LagIsPerReceiver(t *testing.T) {
	bus := NewBus(2)
	slow := bus.Subscribe()
	fast := bus.Subscribe()
	defer slow.Close()
	defer fast.Close()

	for i := int32(0); i < 4; i++ {
		bus.Publish(PointerUp(i, 0))
		if _, err := fast.Recv(context.Background()); err != nil {
			t.Fatalf("fast Recv: %v", err)
		}
	}

	if _, _, err := slow.TryRecv(); !errors.Is(err, ErrLagged) {
		t.Errorf("slow TryRecv err = %v, want lag", err)
	}
	if _, ok, err := fast.TryRecv(); ok || err != nil {
		t.Errorf("fast TryRecv = ok %v err %v, want empty", ok, err)
	}
}

func TestBus_RecvWakesOnPublish(t *testing.T) {
	bus := NewBus(4)
	rx := bus.Subscribe()
	defer rx.Close()

	got := make(chan Event, 1)
	go func() {
		ev, err := rx.Recv(context.Background())
		if err == nil {
			got <- ev
		}
		close(got)
	}()

	time.Sleep(10 * time.Millisecond)
	bus.Publish(Frame())

	select {
	case ev, ok := <-got:
		if !ok || ev.Kind != KindFrame {
			t.Errorf("got %+v ok %v, want frame", ev, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake on publish")
	}
}

func TestBus_RecvContextCancel(t *testing.T) {
	bus := NewBus(4)
	rx := bus.Subscribe()
	defer rx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rx.Recv(ctx)
	if !errors.Is(err, canvaserrors.ErrCanceled) {
		t.Errorf("err = %v, want canceled", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, should wrap the context error", err)
	}
}

func TestReceiver_CloseWakesRecv(t *testing.T) {
	bus := NewBus(4)
	rx := bus.Subscribe()

	errc := make(chan error, 1)
	go func() {
		_, err := rx.Recv(context.Background())
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rx.Close()
	rx.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, canvaserrors.ErrCanceled) {
			t.Errorf("err = %v, want canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake Recv")
	}

	if n := bus.Stats().Receivers; n != 0 {
		t.Errorf("Receivers = %d, want 0", n)
	}
}

func TestBus_CloseDrainsThenFails(t *testing.T) {
	bus := NewBus(4)
	rx := bus.Subscribe()
	defer rx.Close()

	bus.Publish(Frame())
	bus.Close()
	bus.Close()

	if n := bus.Publish(Frame()); n != 0 {
		t.Errorf("Publish after Close = %d, want 0", n)
	}
	if _, err := rx.Recv(context.Background()); err != nil {
		t.Fatalf("buffered event should still be delivered: %v", err)
	}
	if _, err := rx.Recv(context.Background()); !errors.Is(err, canvaserrors.ErrClosed) {
		t.Errorf("err = %v, want closed", err)
	}
	if !bus.Closed() {
		t.Error("Closed() = false")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	const publishers, each = 4, 50

	bus := NewBus(publishers * each)
	rx := bus.Subscribe()
	defer rx.Close()

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				bus.Publish(Frame())
			}
		}()
	}
	wg.Wait()

	if got := rx.Pending(); got != publishers*each {
		t.Fatalf("Pending = %d, want %d", got, publishers*each)
	}
	for i := uint64(0); i < publishers*each; i++ {
		ev, ok, err := rx.TryRecv()
		if err != nil || !ok {
			t.Fatalf("TryRecv %d: ok %v err %v", i, ok, err)
		}
		if ev.Seq != i {
			t.Fatalf("Seq = %d, want %d", ev.Seq, i)
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindFrame:     "frame",
		KindPointerUp: "pointer-up",
		KindResize:    "resize",
		Kind(9):       "kind(9)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

func TestNewBus_DefaultCapacity(t *testing.T) {
	if got := NewBus(0).Capacity(); got != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", got, DefaultCapacity)
	}
}
