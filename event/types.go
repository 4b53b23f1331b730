package event

import (
	"strconv"
	"time"
)

// Kind identifies what an Event carries.
type Kind uint8

const (
	KindFrame Kind = iota + 1
	KindPointerUp
	KindResize
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindPointerUp:
		return "pointer-up"
	case KindResize:
		return "resize"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// PointerEvent is the position of a pointer release, in surface pixels.
type PointerEvent struct {
	X int32
	Y int32
}

// Size is a surface size in pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Event is one item on the bus. Seq and Time are stamped by Publish.
type Event struct {
	Time    time.Time
	Seq     uint64
	Pointer PointerEvent
	Size    Size
	Kind    Kind
}

// Frame returns a frame tick event.
func Frame() Event {
	return Event{Kind: KindFrame}
}

// PointerUp returns a pointer release event at (x, y).
func PointerUp(x, y int32) Event {
	return Event{Kind: KindPointerUp, Pointer: PointerEvent{X: x, Y: y}}
}

// Resize returns a surface resize event.
func Resize(width, height uint32) Event {
	return Event{Kind: KindResize, Size: Size{Width: width, Height: height}}
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Published uint64
	Lagged    uint64
	Receivers int
	Capacity  int
}
