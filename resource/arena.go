package resource

import (
	"sync"

	"github.com/wippyai/canvas-host/errors"
)

// Arena is the in-memory slot store behind UnifiedTable.
// Slots are reused through a free list; every release bumps the slot
// generation so old handles stay detectably stale. A slot whose generation
// is exhausted is retired instead of reused.
type Arena struct {
	slots    []slot
	freeList []int
	live     int
	mu       sync.RWMutex
	closed   bool
}

type slot struct {
	value    any
	children []Handle
	typeID   uint32
	gen      uint32
	owner    Handle
	valid    bool
}

// Released describes one entry removed by a drop.
type Released struct {
	Value  any
	Handle Handle
	Owner  Handle
	TypeID uint32
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		slots:    make([]slot, 0, 64),
		freeList: make([]int, 0, 16),
	}
}

// Create stores a value owned by owner (0 for none) and returns its handle.
func (a *Arena) Create(typeID uint32, value any, owner Handle) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, errors.Closed(errors.PhaseTable, "resource table")
	}

	if owner != 0 {
		if _, err := a.resolve(owner); err != nil {
			return 0, err
		}
	}

	var idx int
	if n := len(a.freeList); n > 0 {
		idx = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
	} else {
		if len(a.slots) >= maxSlots {
			return 0, errors.New(errors.PhaseTable, errors.KindOutOfMemory).
				Detail("resource table full (%d slots)", maxSlots).
				Build()
		}
		a.slots = append(a.slots, slot{})
		idx = len(a.slots) - 1
	}

	s := &a.slots[idx]
	s.value = value
	s.typeID = typeID
	s.owner = owner
	s.children = nil
	s.valid = true

	h := makeHandle(idx, s.gen)
	if owner != 0 {
		p := &a.slots[owner.index()]
		p.children = append(p.children, h)
	}
	a.live++
	return h, nil
}

// resolve returns the slot index for a live handle. Caller holds mu.
func (a *Arena) resolve(h Handle) (int, error) {
	idx := h.index()
	if h == 0 || idx < 0 || idx >= len(a.slots) {
		return 0, errors.NoSuchHandle(errors.PhaseTable, uint32(h))
	}
	s := &a.slots[idx]
	if h.generation() > s.gen {
		return 0, errors.NoSuchHandle(errors.PhaseTable, uint32(h))
	}
	if !s.valid || h.generation() != s.gen {
		return 0, errors.StaleHandle(errors.PhaseTable, uint32(h))
	}
	return idx, nil
}

// Get retrieves a value and its type ID by handle.
func (a *Arena) Get(h Handle) (any, uint32, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx, err := a.resolve(h)
	if err != nil {
		return nil, 0, err
	}
	s := &a.slots[idx]
	return s.value, s.typeID, nil
}

// Owner returns the owner of a live handle, or 0 if it has none.
func (a *Arena) Owner(h Handle) (Handle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx, err := a.resolve(h)
	if err != nil {
		return 0, err
	}
	return a.slots[idx].owner, nil
}

// Children returns a copy of the direct children of a live handle.
func (a *Arena) Children(h Handle) ([]Handle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx, err := a.resolve(h)
	if err != nil {
		return nil, err
	}
	return append([]Handle(nil), a.slots[idx].children...), nil
}

// Drop releases h and its descendants. Descendants come first in the
// returned teardown order, h last.
func (a *Arena) Drop(h Handle) ([]Released, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.resolve(h)
	if err != nil {
		return nil, err
	}

	owner := a.slots[idx].owner
	if owner != 0 {
		a.unlink(owner, h)
	}

	var out []Released
	a.collect(idx, &out)
	return out, nil
}

// DropChildren releases every descendant of h and keeps h itself.
func (a *Arena) DropChildren(h Handle) ([]Released, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.resolve(h)
	if err != nil {
		return nil, err
	}

	children := a.slots[idx].children
	a.slots[idx].children = nil

	var out []Released
	for _, c := range children {
		a.collect(c.index(), &out)
	}
	return out, nil
}

// collect releases the subtree rooted at idx, post-order. Caller holds mu.
func (a *Arena) collect(idx int, out *[]Released) {
	s := &a.slots[idx]
	for _, c := range s.children {
		a.collect(c.index(), out)
	}

	*out = append(*out, Released{
		Value:  s.value,
		Handle: makeHandle(idx, s.gen),
		Owner:  s.owner,
		TypeID: s.typeID,
	})
	a.release(idx)
}

// release frees one slot without touching its children. Caller holds mu.
func (a *Arena) release(idx int) {
	s := &a.slots[idx]
	s.value = nil
	s.children = nil
	s.owner = 0
	s.typeID = 0
	s.valid = false
	a.live--

	// Exhausted generation: retire the slot.
	if s.gen == maxGeneration {
		return
	}
	s.gen++
	a.freeList = append(a.freeList, idx)
}

func (a *Arena) unlink(owner, child Handle) {
	p := &a.slots[owner.index()]
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

// Close releases every live slot and rejects further creates.
func (a *Arena) Close() ([]Released, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, nil
	}
	a.closed = true

	out := a.drainLocked()
	a.slots = nil
	a.freeList = nil
	return out, nil
}

// DropAll releases every live slot but keeps the arena open.
func (a *Arena) DropAll() []Released {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drainLocked()
}

func (a *Arena) drainLocked() []Released {
	var out []Released
	for i := range a.slots {
		if a.slots[i].valid && a.slots[i].owner == 0 {
			a.collect(i, &out)
		}
	}
	return out
}

// Len returns the number of live slots.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Each iterates over all live slots.
func (a *Arena) Each(fn func(Handle, uint32, any) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i := range a.slots {
		s := &a.slots[i]
		if s.valid {
			if !fn(makeHandle(i, s.gen), s.typeID, s.value) {
				break
			}
		}
	}
}
