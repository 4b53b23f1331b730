package abi

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	canvaserrors "github.com/wippyai/canvas-host/errors"
)

// A module with one exported page of memory and nothing else.
var memoryOnlyWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

func newTestMemory(t *testing.T) api.Memory {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	mod, err := r.Instantiate(ctx, memoryOnlyWasm)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return mod.Memory()
}

func TestCalculateLayouts(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		typ     wit.Type
		name    string
		size    uint32
		align   uint32
		payload uint32
	}{
		{wit.U32{}, "u32", 4, 4, 0},
		{wit.String{}, "string", 8, 4, 0},
		{PointerEvent, "pointer-event", 8, 4, 0},
		{FrameInfo, "frame-info", 16, 8, 0},
		{OptionPointerEvent, "option<pointer-event>", 12, 4, 4},
		{OptionFrameInfo, "option<frame-info>", 24, 8, 8},
		{ResultUnit, "result<_, error-code>", 2, 1, 1},
		{ResultBuffer, "result<own<buffer>, error-code>", 8, 4, 4},
		{ErrorCodeType, "error-code", 1, 1, 0},
		{ConfigureContextDesc, "configure-context-desc", 16, 4, 0},
		{U32List, "list<u32>", 8, 4, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := c.Calculate(tc.typ)
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
			if tc.payload != 0 {
				if got := c.PayloadOffset(tc.typ); got != tc.payload {
					t.Errorf("payload offset: got %d, want %d", got, tc.payload)
				}
			}
		})
	}
}

func TestCalculateRecordOffsets(t *testing.T) {
	c := NewCalculator()

	offs := c.Calculate(ConfigureContextDesc).FieldOffs
	want := map[string]uint32{"backend": 0, "width": 4, "height": 8, "present-mode": 12}
	for name, off := range want {
		if offs[name] != off {
			t.Errorf("%s offset = %d, want %d", name, offs[name], off)
		}
	}
}

func TestCalculatorCaches(t *testing.T) {
	c := NewCalculator()
	c.Calculate(OptionPointerEvent)
	if _, ok := c.cache[PointerEvent]; !ok {
		t.Error("nested type def should be cached")
	}
}

func TestSignatures(t *testing.T) {
	i32, i64 := api.ValueTypeI32, api.ValueTypeI64

	tests := []struct {
		ns, name string
		params   []api.ValueType
		results  []api.ValueType
		retptr   bool
	}{
		{NamespaceGraphicsContext, "[constructor]graphics-context", nil, []api.ValueType{i32}, false},
		{NamespaceGraphicsContext, "[method]graphics-context.configure", []api.ValueType{i32, i32, i32, i32, i32, i32}, nil, true},
		{NamespaceGraphicsContext, "[method]graphics-context.get-current-buffer", []api.ValueType{i32, i32}, nil, true},
		{NamespaceGraphicsContext, "[resource-drop]graphics-context", []api.ValueType{i32}, nil, false},
		{NamespacePointerEvents, "up", nil, []api.ValueType{i32}, false},
		{NamespacePointerEvents, "[method]pointer-up.subscribe", []api.ValueType{i32}, []api.ValueType{i32}, false},
		{NamespacePointerEvents, "[method]pointer-up.get", []api.ValueType{i32, i32}, nil, true},
		{NamespaceAnimationFrame, "[method]frame.get", []api.ValueType{i32, i32}, nil, true},
		{NamespacePoll, "poll", []api.ValueType{i32, i32, i32}, nil, true},
		{NamespacePoll, "[method]pollable.ready", []api.ValueType{i32}, []api.ValueType{i32}, false},
		{NamespaceRoot, "print", []api.ValueType{i32, i32}, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, ok := Lookup(tc.ns, tc.name)
			if !ok {
				t.Fatalf("%s#%s not declared", tc.ns, tc.name)
			}
			sig := f.Signature()
			if !equalTypes(sig.Params, tc.params) {
				t.Errorf("params = %v, want %v", sig.Params, tc.params)
			}
			if !equalTypes(sig.Results, tc.results) {
				t.Errorf("results = %v, want %v", sig.Results, tc.results)
			}
			if sig.RetPtr != tc.retptr {
				t.Errorf("RetPtr = %v, want %v", sig.RetPtr, tc.retptr)
			}
		})
	}

	// option<frame-info> flattens to a mixed payload before spilling.
	flat := FlattenType(OptionFrameInfo)
	if !equalTypes(flat, []api.ValueType{i32, i64, i64}) {
		t.Errorf("FlattenType(option<frame-info>) = %v", flat)
	}
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLookupMissing(t *testing.T) {
	if _, ok := Lookup(NamespacePoll, "poll-list"); ok {
		t.Error("unexpected function")
	}
	if _, ok := Lookup("wasi:io/streams@0.2.0", "poll"); ok {
		t.Error("unexpected namespace")
	}
}

func TestMemory_SharedCalculator(t *testing.T) {
	raw := newTestMemory(t)
	calc := NewCalculator()

	if err := NewMemory(raw, calc).WriteResultUnit(80, 0, false); err != nil {
		t.Fatal(err)
	}
	if _, ok := calc.cache[ResultUnit]; !ok {
		t.Fatal("layout not cached in the shared calculator")
	}

	// A second Memory over the same calculator reuses the cached layout.
	m := NewMemory(raw, calc)
	if m.calc != calc {
		t.Fatal("NewMemory replaced the shared calculator")
	}
	if err := m.WriteResultUnit(80, ErrorSurfaceLost, true); err != nil {
		t.Fatal(err)
	}
}

func TestCalculator_Concurrent(t *testing.T) {
	calc := NewCalculator()
	want := calc.Calculate(OptionPointerEvent)
	fresh := NewCalculator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, typ := range []wit.Type{OptionPointerEvent, ResultBuffer, ResultUnit, PointerEvent} {
				fresh.Calculate(typ)
			}
		}()
	}
	wg.Wait()

	if got := fresh.Calculate(OptionPointerEvent); got.Size != want.Size || got.Align != want.Align {
		t.Errorf("concurrent layout = %+v, want %+v", got, want)
	}
}

func TestMemory_Results(t *testing.T) {
	raw := newTestMemory(t)
	m := NewMemory(raw, nil)

	if err := m.WriteResultHandle(64, 0x1234, 0, false); err != nil {
		t.Fatal(err)
	}
	if b, _ := raw.ReadByte(64); b != 0 {
		t.Errorf("ok discriminant = %d", b)
	}
	if v, _ := raw.ReadUint32Le(68); v != 0x1234 {
		t.Errorf("handle = %#x", v)
	}

	if err := m.WriteResultHandle(64, 0, ErrorUnconfigured, true); err != nil {
		t.Fatal(err)
	}
	if b, _ := raw.ReadByte(64); b != 1 {
		t.Errorf("err discriminant = %d", b)
	}
	if b, _ := raw.ReadByte(68); ErrorCode(b) != ErrorUnconfigured {
		t.Errorf("error code = %d", b)
	}

	if err := m.WriteResultUnit(80, ErrorSurfaceLost, true); err != nil {
		t.Fatal(err)
	}
	if b, _ := raw.ReadByte(81); ErrorCode(b) != ErrorSurfaceLost {
		t.Errorf("unit error code = %d", b)
	}
}

func TestMemory_Options(t *testing.T) {
	raw := newTestMemory(t)
	m := NewMemory(raw, nil)

	if err := m.WriteOptionPointerEvent(16, -5, 7, true); err != nil {
		t.Fatal(err)
	}
	x, _ := raw.ReadUint32Le(20)
	y, _ := raw.ReadUint32Le(24)
	if int32(x) != -5 || int32(y) != 7 {
		t.Errorf("pointer = (%d, %d)", int32(x), int32(y))
	}

	if err := m.WriteOptionPointerEvent(16, 0, 0, false); err != nil {
		t.Fatal(err)
	}
	if b, _ := raw.ReadByte(16); b != 0 {
		t.Errorf("none discriminant = %d", b)
	}

	if err := m.WriteOptionFrameInfo(32, 9, 1700000000000, true); err != nil {
		t.Fatal(err)
	}
	seq, _ := raw.ReadUint64Le(40)
	ts, _ := raw.ReadUint64Le(48)
	if seq != 9 || ts != 1700000000000 {
		t.Errorf("frame = (%d, %d)", seq, ts)
	}
}

func TestMemory_Lists(t *testing.T) {
	raw := newTestMemory(t)
	m := NewMemory(raw, nil)

	if err := m.WriteU32List(128, []uint32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadU32List(128, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("ReadU32List = %v", got)
	}

	if err := m.WriteListHeader(8, 128, 3); err != nil {
		t.Fatal(err)
	}
	if p, _ := raw.ReadUint32Le(8); p != 128 {
		t.Errorf("list ptr = %d", p)
	}

	raw.Write(200, []byte("hello"))
	s, err := m.ReadString(200, 5)
	if err != nil || s != "hello" {
		t.Errorf("ReadString = %q, %v", s, err)
	}
}

func TestMemory_OutOfBounds(t *testing.T) {
	raw := newTestMemory(t)
	m := NewMemory(raw, nil)
	end := raw.Size()

	if err := m.WriteResultHandle(end-4, 1, 0, false); !errors.Is(err, &canvaserrors.Error{Kind: canvaserrors.KindOutOfBounds}) {
		t.Errorf("WriteResultHandle = %v, want out of bounds", err)
	}
	if _, err := m.ReadU32List(end-4, 2); err == nil {
		t.Error("ReadU32List past the end should fail")
	}
	if _, err := m.ReadU32List(0, 1<<31); err == nil {
		t.Error("overflowing list length should fail")
	}
	if _, err := m.ReadString(0, MaxStringSize+1); !errors.Is(err, canvaserrors.ErrInvalidInput) {
		t.Errorf("ReadString = %v, want invalid input", err)
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrorSurfaceOutdated.String() != "surface-outdated" {
		t.Errorf("String = %q", ErrorSurfaceOutdated.String())
	}
	if ErrorCode(200).String() != "internal" {
		t.Errorf("unknown code = %q", ErrorCode(200).String())
	}
}
