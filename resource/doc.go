// Package resource provides the capability table that maps opaque handles
// to host-owned values.
//
// A guest never sees a host value directly. It receives a Handle, and every
// operation resolves the handle through the table:
//
//	table := resource.NewTable()
//
//	ctx := table.Insert(ContextType, context)
//	buf, err := table.InsertChild(BufferType, buffer, ctx)
//
//	value, err := table.GetTyped(buf, BufferType)
//
// # Ownership
//
// An entry may be owned by another entry. Removing an owner removes every
// entry it transitively owns, children before parents, and calls Drop on
// each value that implements Dropper:
//
//	table.Remove(ctx) // buf is released first, then ctx
//
// RemoveChildren releases the owned entries and keeps the owner.
//
// # Stale Handles
//
// A handle packs a slot index with the slot's generation. Releasing a slot
// bumps its generation, so a handle held past its release resolves to
// errors.ErrStaleHandle (which also matches errors.ErrNoSuchHandle) rather
// than to whatever value reuses the slot. A slot whose generation space is
// exhausted is retired and never reused, so no handle value is issued twice.
//
// # Type Safety
//
// Each entry carries a type ID. GetTyped rejects live handles of another
// type, and Typed[T] binds a type ID to a Go type:
//
//	contexts := resource.NewTyped[*Context](table, ContextType)
//	h := contexts.Insert(&Context{})
//	c, err := contexts.Get(h)
//
// # Observers
//
// Observers receive EventCreated and EventDropped notifications. LogObserver
// writes them to a zap logger at debug level.
//
// # Concurrency
//
// The table is guarded by a read/write mutex. Dropper teardown and observer
// callbacks run after the lock is released, so a Drop method may call back
// into the table.
package resource
