package resource

import (
	"sync"

	"github.com/wippyai/canvas-host/errors"
)

// UnifiedTable implements the Table interface on top of an Arena.
// Dropper teardown and observer notification run outside the arena lock.
type UnifiedTable struct {
	arena     *Arena
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new unified table.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		arena: NewArena(),
	}
}

// Insert adds a value and returns its handle, or 0 if the table is closed.
func (t *UnifiedTable) Insert(typeID uint32, value any) Handle {
	h, err := t.arena.Create(typeID, value, 0)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: h,
		TypeID: typeID,
		Value:  value,
	})
	return h
}

// InsertChild adds a value owned by parent. Removing parent removes it too.
func (t *UnifiedTable) InsertChild(typeID uint32, value any, parent Handle) (Handle, error) {
	h, err := t.arena.Create(typeID, value, parent)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: h,
		Owner:  parent,
		TypeID: typeID,
		Value:  value,
	})
	return h, nil
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, error) {
	v, _, err := t.arena.Get(handle)
	return v, err
}

// GetTyped retrieves a value only if it matches the expected type.
// A live handle of another type is reported as no such handle.
func (t *UnifiedTable) GetTyped(handle Handle, typeID uint32) (any, error) {
	v, actual, err := t.arena.Get(handle)
	if err != nil {
		return nil, err
	}
	if actual != typeID {
		return nil, errors.ForeignHandle(errors.PhaseTable, uint32(handle), typeID, actual)
	}
	return v, nil
}

// TypeOf returns the type ID of a live handle.
func (t *UnifiedTable) TypeOf(handle Handle) (uint32, error) {
	_, typeID, err := t.arena.Get(handle)
	return typeID, err
}

// Owner returns the owner of a live handle, or 0 for a root entry.
func (t *UnifiedTable) Owner(handle Handle) (Handle, error) {
	return t.arena.Owner(handle)
}

// Children returns the direct children of a live handle.
func (t *UnifiedTable) Children(handle Handle) ([]Handle, error) {
	return t.arena.Children(handle)
}

// Remove drops handle and every resource it transitively owns, children
// first, and returns the value stored under handle.
func (t *UnifiedTable) Remove(handle Handle) (any, error) {
	out, err := t.arena.Drop(handle)
	if err != nil {
		return nil, err
	}
	t.teardown(out)
	return out[len(out)-1].Value, nil
}

// RemoveChildren drops everything handle owns and returns how many entries
// were released.
func (t *UnifiedTable) RemoveChildren(handle Handle) (int, error) {
	out, err := t.arena.DropChildren(handle)
	if err != nil {
		return 0, err
	}
	t.teardown(out)
	return len(out), nil
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *UnifiedTable) Len() int {
	return t.arena.Len()
}

// Each iterates over all active resources.
func (t *UnifiedTable) Each(fn func(Handle, uint32, any) bool) {
	t.arena.Each(fn)
}

// Clear drops all resources.
func (t *UnifiedTable) Clear() {
	t.teardown(t.arena.DropAll())
}

// Close releases all resources and stops accepting operations.
func (t *UnifiedTable) Close() error {
	out, err := t.arena.Close()
	if err != nil {
		return err
	}
	t.teardown(out)
	return nil
}

func (t *UnifiedTable) teardown(out []Released) {
	for _, r := range out {
		if d, ok := r.Value.(Dropper); ok {
			d.Drop()
		}
		t.notify(Event{
			Type:   EventDropped,
			Handle: r.Handle,
			Owner:  r.Owner,
			TypeID: r.TypeID,
			Value:  r.Value,
		})
	}
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
