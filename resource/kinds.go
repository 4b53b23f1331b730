package resource

// Type IDs for the resources the canvas host hands to guests.
const (
	TypeGraphicsContext uint32 = iota + 1
	TypeGraphicsBuffer
	TypePointerUp
	TypeFrame
	TypePollable
)

// TypeNames maps the host's type IDs to their interface resource names.
var TypeNames = map[uint32]string{
	TypeGraphicsContext: "graphics-context",
	TypeGraphicsBuffer:  "graphics-context-buffer",
	TypePointerUp:       "pointer-up",
	TypeFrame:           "frame",
	TypePollable:        "pollable",
}
