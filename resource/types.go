package resource

// Handle is an opaque reference to a resource in a table.
// The low 20 bits hold the slot index plus one, the high 12 bits the slot
// generation. Handle 0 is reserved and always invalid.
type Handle uint32

const (
	indexBits     = 20
	indexMask     = 1<<indexBits - 1
	maxSlots      = indexMask
	maxGeneration = 1<<(32-indexBits) - 1
)

func makeHandle(index int, gen uint32) Handle {
	return Handle(gen<<indexBits | uint32(index+1))
}

func (h Handle) index() int {
	return int(uint32(h)&indexMask) - 1
}

func (h Handle) generation() uint32 {
	return uint32(h) >> indexBits
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Owner  Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Table manages resources with ownership, type information and observer support.
type Table interface {
	// Insert adds an unowned value and returns its handle.
	Insert(typeID uint32, value any) Handle

	// InsertChild adds a value owned by parent.
	InsertChild(typeID uint32, value any, parent Handle) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, error)

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID uint32) (any, error)

	// Remove drops a resource and every resource it transitively owns.
	Remove(handle Handle) (any, error)

	// RemoveChildren drops every resource handle transitively owns, keeping handle.
	RemoveChildren(handle Handle) (int, error)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of active resources.
	Len() int

	// Clear drops all resources.
	Clear()

	// Close releases all resources and stops accepting operations.
	Close() error
}

// Dropper is optionally implemented by resource values that need cleanup.
type Dropper interface {
	Drop()
}
