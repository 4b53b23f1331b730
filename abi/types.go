package abi

import (
	"go.bytecodealliance.org/wit"
)

// ErrorCode is the error-code enum returned to guests.
type ErrorCode uint8

const (
	ErrorNoSuchHandle ErrorCode = iota
	ErrorUnconfigured
	ErrorSurfaceLost
	ErrorSurfaceTimeout
	ErrorSurfaceOutdated
	ErrorSubscriptionLag
	ErrorCanceled
	ErrorInvalidInput
	ErrorInternal
)

var errorCodeNames = []string{
	"no-such-handle",
	"unconfigured",
	"surface-lost",
	"surface-timeout",
	"surface-outdated",
	"subscription-lag",
	"canceled",
	"invalid-input",
	"internal",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return "internal"
}

// Backend kinds as carried in configure-context-desc.
const (
	BackendKindWebGPU uint32 = iota
	BackendKindSimpleBuffer
)

// Present modes as carried in configure-context-desc.
const (
	PresentModeFifo uint32 = iota
	PresentModeImmediate
	PresentModeMailbox
)

func enumOf(names ...string) *wit.TypeDef {
	cases := make([]wit.EnumCase, len(names))
	for i, n := range names {
		cases[i] = wit.EnumCase{Name: n}
	}
	return &wit.TypeDef{Kind: &wit.Enum{Cases: cases}}
}

func resourceType() *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Resource{}}
}

func own(r *wit.TypeDef) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Own{Type: r}}
}

func borrow(r *wit.TypeDef) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Borrow{Type: r}}
}

// Resource types.
var (
	GraphicsContext       = resourceType()
	GraphicsContextBuffer = resourceType()
	PointerUp             = resourceType()
	Frame                 = resourceType()
	Pollable              = resourceType()
)

// Value types.
var (
	ErrorCodeType = enumOf(errorCodeNames...)

	BackendKind = enumOf("webgpu", "simple-buffer")

	PresentMode = enumOf("fifo", "immediate", "mailbox")

	ConfigureContextDesc = &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "backend", Type: BackendKind},
		{Name: "width", Type: wit.U32{}},
		{Name: "height", Type: wit.U32{}},
		{Name: "present-mode", Type: PresentMode},
	}}}

	PointerEvent = &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "x", Type: wit.S32{}},
		{Name: "y", Type: wit.S32{}},
	}}}

	FrameInfo = &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "seq", Type: wit.U64{}},
		{Name: "timestamp-ms", Type: wit.U64{}},
	}}}

	OptionPointerEvent = &wit.TypeDef{Kind: &wit.Option{Type: PointerEvent}}
	OptionFrameInfo    = &wit.TypeDef{Kind: &wit.Option{Type: FrameInfo}}

	ResultUnit   = &wit.TypeDef{Kind: &wit.Result{Err: ErrorCodeType}}
	ResultBuffer = &wit.TypeDef{Kind: &wit.Result{OK: own(GraphicsContextBuffer), Err: ErrorCodeType}}

	PollableList = &wit.TypeDef{Kind: &wit.List{Type: borrow(Pollable)}}
	U32List      = &wit.TypeDef{Kind: &wit.List{Type: wit.U32{}}}
)

// Func describes one imported function.
type Func struct {
	Result wit.Type
	Name   string
	Params []wit.Type
}

// Signature returns the lowered core signature of f.
func (f Func) Signature() Signature {
	return Lower(f.Params, f.Result)
}

// Interface is one import namespace.
type Interface struct {
	Namespace string
	Funcs     []Func
}

// Namespaces.
const (
	NamespaceGraphicsContext = "component:webgpu/graphics-context"
	NamespacePointerEvents   = "component:webgpu/pointer-events"
	NamespaceAnimationFrame  = "component:webgpu/request-animation-frame"
	NamespacePoll            = "wasi:io/poll@0.2.0"
	NamespaceRoot            = "$root"
)

// Interfaces lists every namespace the host provides.
var Interfaces = []Interface{
	{
		Namespace: NamespaceGraphicsContext,
		Funcs: []Func{
			{Name: "[constructor]graphics-context", Result: own(GraphicsContext)},
			{Name: "[method]graphics-context.configure", Params: []wit.Type{borrow(GraphicsContext), ConfigureContextDesc}, Result: ResultUnit},
			{Name: "[method]graphics-context.get-current-buffer", Params: []wit.Type{borrow(GraphicsContext)}, Result: ResultBuffer},
			{Name: "[resource-drop]graphics-context", Params: []wit.Type{own(GraphicsContext)}},
			{Name: "[method]graphics-context-buffer.present", Params: []wit.Type{borrow(GraphicsContextBuffer)}, Result: ResultUnit},
			{Name: "[resource-drop]graphics-context-buffer", Params: []wit.Type{own(GraphicsContextBuffer)}},
		},
	},
	{
		Namespace: NamespacePointerEvents,
		Funcs: []Func{
			{Name: "up", Result: own(PointerUp)},
			{Name: "[method]pointer-up.subscribe", Params: []wit.Type{borrow(PointerUp)}, Result: own(Pollable)},
			{Name: "[method]pointer-up.get", Params: []wit.Type{borrow(PointerUp)}, Result: OptionPointerEvent},
			{Name: "[resource-drop]pointer-up", Params: []wit.Type{own(PointerUp)}},
		},
	},
	{
		Namespace: NamespaceAnimationFrame,
		Funcs: []Func{
			{Name: "get-frame", Result: own(Frame)},
			{Name: "[method]frame.subscribe", Params: []wit.Type{borrow(Frame)}, Result: own(Pollable)},
			{Name: "[method]frame.get", Params: []wit.Type{borrow(Frame)}, Result: OptionFrameInfo},
			{Name: "[resource-drop]frame", Params: []wit.Type{own(Frame)}},
		},
	},
	{
		Namespace: NamespacePoll,
		Funcs: []Func{
			{Name: "poll", Params: []wit.Type{PollableList}, Result: U32List},
			{Name: "[method]pollable.ready", Params: []wit.Type{borrow(Pollable)}, Result: wit.Bool{}},
			{Name: "[method]pollable.block", Params: []wit.Type{borrow(Pollable)}},
			{Name: "[resource-drop]pollable", Params: []wit.Type{own(Pollable)}},
		},
	},
	{
		Namespace: NamespaceRoot,
		Funcs: []Func{
			{Name: "print", Params: []wit.Type{wit.String{}}},
		},
	},
}

// Lookup finds a function by namespace and name.
func Lookup(namespace, name string) (Func, bool) {
	for _, iface := range Interfaces {
		if iface.Namespace != namespace {
			continue
		}
		for _, f := range iface.Funcs {
			if f.Name == name {
				return f, true
			}
		}
	}
	return Func{}, false
}
