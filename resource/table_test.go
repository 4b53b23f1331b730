package resource

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/canvas-host/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type dropRecorder struct {
	name  string
	order *[]string
}

func (d *dropRecorder) Drop() {
	*d.order = append(*d.order, d.name)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, err := table.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, err := table.GetTyped(h, 1); err != nil {
		t.Fatalf("GetTyped with correct type failed: %v", err)
	}

	_, err = table.GetTyped(h, 2)
	if !errors.Is(err, errors.ErrNoSuchHandle) {
		t.Fatalf("GetTyped with wrong type: got %v, want no such handle", err)
	}

	val, err = table.Remove(h)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestUnifiedTable_UnknownHandle(t *testing.T) {
	table := NewTable()

	for _, h := range []Handle{0, 1, 0xFFFFF, makeHandle(0, 7)} {
		if _, err := table.Get(h); !errors.Is(err, errors.ErrNoSuchHandle) {
			t.Errorf("Get(%#x) = %v, want no such handle", h, err)
		}
		if _, err := table.Get(h); errors.Is(err, errors.ErrStaleHandle) {
			t.Errorf("Get(%#x) reported stale for a never-issued handle", h)
		}
	}
}

func TestUnifiedTable_StaleHandle(t *testing.T) {
	table := NewTable()

	h := table.Insert(1, "a")
	if _, err := table.Remove(h); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, err := table.Get(h); !errors.Is(err, errors.ErrStaleHandle) {
		t.Fatalf("Get after Remove = %v, want stale", err)
	}
	if _, err := table.Remove(h); !errors.Is(err, errors.ErrNoSuchHandle) {
		t.Fatalf("second Remove = %v, want no such handle", err)
	}

	// The slot is reused under a new generation; the old handle stays stale.
	h2 := table.Insert(1, "b")
	if h2.index() != h.index() {
		t.Fatalf("expected slot reuse, got index %d want %d", h2.index(), h.index())
	}
	if h2 == h {
		t.Fatal("reused slot must yield a different handle")
	}
	if _, err := table.Get(h); !errors.Is(err, errors.ErrStaleHandle) {
		t.Fatalf("old handle resolved after slot reuse: %v", err)
	}
	if v, err := table.Get(h2); err != nil || v != "b" {
		t.Fatalf("Get(h2) = %v, %v", v, err)
	}
}

func TestUnifiedTable_GenerationExhaustionRetiresSlot(t *testing.T) {
	table := NewTable()

	seen := make(map[Handle]bool)
	h := table.Insert(1, 0)
	idx := h.index()
	for i := 0; i <= maxGeneration; i++ {
		if seen[h] {
			t.Fatalf("handle %#x issued twice", h)
		}
		seen[h] = true
		if _, err := table.Remove(h); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		h = table.Insert(1, i)
	}

	if h.index() == idx {
		t.Fatalf("slot %d reused after generation exhaustion", idx)
	}
}

func TestUnifiedTable_ChildOwnership(t *testing.T) {
	table := NewTable()

	parent := table.Insert(1, "ctx")
	child, err := table.InsertChild(2, "buf", parent)
	if err != nil {
		t.Fatalf("InsertChild failed: %v", err)
	}
	grandchild, err := table.InsertChild(3, "view", child)
	if err != nil {
		t.Fatalf("InsertChild failed: %v", err)
	}

	owner, err := table.Owner(child)
	if err != nil || owner != parent {
		t.Fatalf("Owner(child) = %v, %v; want %v", owner, err, parent)
	}

	if _, err := table.Remove(parent); err != nil {
		t.Fatalf("Remove(parent) failed: %v", err)
	}

	for _, h := range []Handle{parent, child, grandchild} {
		if _, err := table.Get(h); !errors.Is(err, errors.ErrNoSuchHandle) {
			t.Errorf("Get(%#x) after parent removal = %v, want no such handle", h, err)
		}
	}
	if table.Len() != 0 {
		t.Fatalf("Len = %d, want 0", table.Len())
	}
}

func TestUnifiedTable_InsertChildStaleParent(t *testing.T) {
	table := NewTable()

	parent := table.Insert(1, "ctx")
	table.Remove(parent)

	if _, err := table.InsertChild(2, "buf", parent); !errors.Is(err, errors.ErrNoSuchHandle) {
		t.Fatalf("InsertChild with stale parent = %v, want no such handle", err)
	}
	if table.Len() != 0 {
		t.Fatalf("failed InsertChild must not leave an entry, Len = %d", table.Len())
	}
}

func TestUnifiedTable_RemoveChildOnlyUnlinks(t *testing.T) {
	table := NewTable()

	parent := table.Insert(1, "ctx")
	a, _ := table.InsertChild(2, "a", parent)
	b, _ := table.InsertChild(2, "b", parent)

	if _, err := table.Remove(a); err != nil {
		t.Fatalf("Remove(a) failed: %v", err)
	}

	children, err := table.Children(parent)
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 1 || children[0] != b {
		t.Fatalf("Children = %v, want [%v]", children, b)
	}

	if _, err := table.Get(parent); err != nil {
		t.Fatalf("parent must survive child removal: %v", err)
	}
}

func TestUnifiedTable_RemoveChildren(t *testing.T) {
	table := NewTable()

	parent := table.Insert(1, "ctx")
	a, _ := table.InsertChild(2, "a", parent)
	b, _ := table.InsertChild(2, "b", parent)
	nested, _ := table.InsertChild(3, "n", b)

	n, err := table.RemoveChildren(parent)
	if err != nil {
		t.Fatalf("RemoveChildren failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("RemoveChildren released %d entries, want 3", n)
	}

	for _, h := range []Handle{a, b, nested} {
		if _, err := table.Get(h); err == nil {
			t.Errorf("child %#x survived RemoveChildren", h)
		}
	}
	if _, err := table.Get(parent); err != nil {
		t.Fatalf("parent removed by RemoveChildren: %v", err)
	}

	c, err := table.InsertChild(2, "c", parent)
	if err != nil {
		t.Fatalf("InsertChild after RemoveChildren failed: %v", err)
	}
	children, _ := table.Children(parent)
	if len(children) != 1 || children[0] != c {
		t.Fatalf("Children = %v, want [%v]", children, c)
	}
}

func TestUnifiedTable_TeardownOrder(t *testing.T) {
	table := NewTable()
	var order []string

	parent := table.Insert(1, &dropRecorder{name: "parent", order: &order})
	child, _ := table.InsertChild(2, &dropRecorder{name: "child", order: &order}, parent)
	table.InsertChild(3, &dropRecorder{name: "grandchild", order: &order}, child)
	table.InsertChild(2, &dropRecorder{name: "sibling", order: &order}, parent)

	table.Remove(parent)

	want := []string{"grandchild", "child", "sibling", "parent"}
	if len(order) != len(want) {
		t.Fatalf("drop order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drop order = %v, want %v", order, want)
		}
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(1, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Handle != h {
		t.Fatalf("unexpected event %+v", obs.events[0])
	}

	child, _ := table.InsertChild(2, "child", h)
	if obs.events[1].Owner != h {
		t.Fatalf("child event owner = %v, want %v", obs.events[1].Owner, h)
	}

	table.Remove(h)
	if len(obs.events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(obs.events))
	}
	if obs.events[2].Type != EventDropped || obs.events[2].Handle != child {
		t.Fatalf("expected child dropped first, got %+v", obs.events[2])
	}
	if obs.events[3].Type != EventDropped || obs.events[3].Handle != h {
		t.Fatalf("expected parent dropped last, got %+v", obs.events[3])
	}

	table.Unsubscribe(obs)
	table.Insert(1, "test2")
	if len(obs.events) != 4 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestUnifiedTable_Clear(t *testing.T) {
	table := NewTable()
	var order []string

	p := table.Insert(1, &dropRecorder{name: "p", order: &order})
	table.InsertChild(2, &dropRecorder{name: "c", order: &order}, p)
	table.Insert(1, &dropRecorder{name: "q", order: &order})

	table.Clear()

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
	if len(order) != 3 {
		t.Fatalf("Clear dropped %v, want 3 values", order)
	}

	if h := table.Insert(1, "after"); h == 0 {
		t.Fatal("Insert should succeed after Clear")
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()
	var order []string

	h := table.Insert(1, &dropRecorder{name: "a", order: &order})

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(order) != 1 {
		t.Fatalf("Close should drop live values, dropped %v", order)
	}

	if h := table.Insert(1, "c"); h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
	if _, err := table.InsertChild(1, "c", h); !errors.Is(err, errors.ErrClosed) {
		t.Fatalf("InsertChild after Close = %v, want closed", err)
	}
	if err := table.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestUnifiedTable_DropperMayReenter(t *testing.T) {
	table := NewTable()
	var inner Handle

	outer := table.Insert(1, dropFunc(func() {
		// Drop runs without the table lock held.
		inner = table.Insert(2, "created during drop")
	}))
	table.Remove(outer)

	if _, err := table.Get(inner); err != nil {
		t.Fatalf("insert from Drop failed: %v", err)
	}
}

type dropFunc func()

func (f dropFunc) Drop() { f() }

func TestUnifiedTable_ConcurrentReaders(t *testing.T) {
	table := NewTable()
	handles := make([]Handle, 64)
	for i := range handles {
		handles[i] = table.Insert(1, i)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, h := range handles {
				v, err := table.Get(h)
				if err != nil || v != i {
					t.Errorf("Get(%v) = %v, %v", h, v, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	table := NewTable()
	table.Subscribe(NewLogObserver(zap.New(core), map[uint32]string{1: "graphics-context"}))

	h := table.Insert(1, "ctx")
	table.Remove(h)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Message != "resource created" || entries[1].Message != "resource dropped" {
		t.Fatalf("unexpected messages %q, %q", entries[0].Message, entries[1].Message)
	}
	if got := entries[0].ContextMap()["type"]; got != "graphics-context" {
		t.Fatalf("type field = %v, want graphics-context", got)
	}
}

func TestTyped(t *testing.T) {
	type widget struct{ n int }

	table := NewTable()
	widgets := NewTyped[*widget](table, 1)
	names := NewTyped[string](table, 2)

	w := widgets.Insert(&widget{n: 1})
	n, err := names.InsertChild("label", w)
	if err != nil {
		t.Fatalf("InsertChild failed: %v", err)
	}

	got, err := widgets.Get(w)
	if err != nil || got.n != 1 {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := names.Get(w); !errors.Is(err, errors.ErrNoSuchHandle) {
		t.Fatalf("foreign handle resolved through wrong view: %v", err)
	}
	if widgets.Len() != 1 || names.Len() != 1 {
		t.Fatalf("Len = %d/%d, want 1/1", widgets.Len(), names.Len())
	}

	count := 0
	widgets.Each(func(h Handle, v *widget) bool {
		count++
		return true
	})
	if count != 1 {
		t.Fatalf("Each visited %d, want 1", count)
	}

	if _, err := names.Remove(w); err == nil {
		t.Fatal("Remove through wrong view must fail")
	}
	if _, err := widgets.Remove(w); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := names.Get(n); !errors.Is(err, errors.ErrNoSuchHandle) {
		t.Fatalf("child survived typed Remove: %v", err)
	}
}
