package resource

import (
	"fmt"

	"github.com/wippyai/canvas-host/errors"
)

// Typed is a view of a UnifiedTable bound to one resource type.
type Typed[T any] struct {
	table  *UnifiedTable
	typeID uint32
}

// NewTyped binds typeID to the Go type T on table.
func NewTyped[T any](table *UnifiedTable, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// TypeID returns the resource type this view reads and writes.
func (t *Typed[T]) TypeID() uint32 {
	return t.typeID
}

// Insert adds an unowned value.
func (t *Typed[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// InsertChild adds a value owned by parent, which may be of any type.
func (t *Typed[T]) InsertChild(value T, parent Handle) (Handle, error) {
	return t.table.InsertChild(t.typeID, value, parent)
}

// Get resolves a handle of this type.
func (t *Typed[T]) Get(handle Handle) (T, error) {
	var zero T
	v, err := t.table.GetTyped(handle, t.typeID)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.PhaseTable, errors.KindNoSuchHandle).
			Handle(uint32(handle)).
			Detail("stored %T, want %s", v, typeName[T]()).
			Build()
	}
	return typed, nil
}

// Remove drops a handle of this type and everything it owns.
func (t *Typed[T]) Remove(handle Handle) (T, error) {
	var zero T
	if _, err := t.Get(handle); err != nil {
		return zero, err
	}
	v, err := t.table.Remove(handle)
	if err != nil {
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

// Len returns the number of live resources of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.table.Each(func(_ Handle, typeID uint32, _ any) bool {
		if typeID == t.typeID {
			n++
		}
		return true
	})
	return n
}

// Each iterates over live resources of this type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, typeID uint32, v any) bool {
		if typeID != t.typeID {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", &zero)[1:]
}
