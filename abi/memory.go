package abi

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/canvas-host/errors"
)

// MaxStringSize bounds strings read from guest memory.
const MaxStringSize = 1 << 20

// Memory lowers host values into guest linear memory and lifts guest
// arguments out of it, using canonical ABI layouts.
type Memory struct {
	mem  api.Memory
	calc *Calculator
}

// NewMemory wraps a guest memory. calc may be nil, in which case the
// Memory gets its own Calculator; pass a shared one to keep its cache.
func NewMemory(mem api.Memory, calc *Calculator) *Memory {
	if calc == nil {
		calc = NewCalculator()
	}
	return &Memory{mem: mem, calc: calc}
}

func (m *Memory) check(offset, size uint32) error {
	end := uint64(offset) + uint64(size)
	if end > uint64(m.mem.Size()) {
		return errors.OutOfBounds(errors.PhaseBinding, offset, size)
	}
	return nil
}

func (m *Memory) writeU8(offset uint32, v uint8) error {
	if !m.mem.WriteByte(offset, v) {
		return errors.OutOfBounds(errors.PhaseBinding, offset, 1)
	}
	return nil
}

func (m *Memory) writeU32(offset, v uint32) error {
	if !m.mem.WriteUint32Le(offset, v) {
		return errors.OutOfBounds(errors.PhaseBinding, offset, 4)
	}
	return nil
}

func (m *Memory) writeU64(offset uint32, v uint64) error {
	if !m.mem.WriteUint64Le(offset, v) {
		return errors.OutOfBounds(errors.PhaseBinding, offset, 8)
	}
	return nil
}

// ReadString lifts a string argument.
func (m *Memory) ReadString(ptr, length uint32) (string, error) {
	if length > MaxStringSize {
		return "", errors.InvalidInput(errors.PhaseBinding, "string too long")
	}
	b, ok := m.mem.Read(ptr, length)
	if !ok {
		return "", errors.OutOfBounds(errors.PhaseBinding, ptr, length)
	}
	return string(b), nil
}

// ReadU32List lifts a list<u32> (or list of handles) argument.
func (m *Memory) ReadU32List(ptr, length uint32) ([]uint32, error) {
	size, ok := mulU32(length, 4)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseBinding, ptr, length)
	}
	if err := m.check(ptr, size); err != nil {
		return nil, err
	}
	out := make([]uint32, length)
	for i := range out {
		out[i], _ = m.mem.ReadUint32Le(ptr + uint32(i)*4)
	}
	return out, nil
}

// WriteU32List stores values at ptr, which must have room for them.
func (m *Memory) WriteU32List(ptr uint32, values []uint32) error {
	size, ok := mulU32(uint32(len(values)), 4)
	if !ok {
		return errors.OutOfBounds(errors.PhaseBinding, ptr, uint32(len(values)))
	}
	if err := m.check(ptr, size); err != nil {
		return err
	}
	for i, v := range values {
		_ = m.writeU32(ptr+uint32(i)*4, v)
	}
	return nil
}

// WriteListHeader writes the (ptr, len) pair of a list result at retptr.
func (m *Memory) WriteListHeader(retptr, ptr, length uint32) error {
	if err := m.check(retptr, 8); err != nil {
		return err
	}
	_ = m.writeU32(retptr, ptr)
	return m.writeU32(retptr+4, length)
}

// WriteResultUnit writes result<_, error-code> at retptr. failed selects
// the error case.
func (m *Memory) WriteResultUnit(retptr uint32, code ErrorCode, failed bool) error {
	if err := m.check(retptr, m.calc.Calculate(ResultUnit).Size); err != nil {
		return err
	}
	if !failed {
		return m.writeU8(retptr, 0)
	}
	_ = m.writeU8(retptr, 1)
	return m.writeU8(retptr+m.calc.PayloadOffset(ResultUnit), uint8(code))
}

// WriteResultHandle writes result<own<T>, error-code> at retptr.
func (m *Memory) WriteResultHandle(retptr, handle uint32, code ErrorCode, failed bool) error {
	if err := m.check(retptr, m.calc.Calculate(ResultBuffer).Size); err != nil {
		return err
	}
	payload := retptr + m.calc.PayloadOffset(ResultBuffer)
	if !failed {
		_ = m.writeU8(retptr, 0)
		return m.writeU32(payload, handle)
	}
	_ = m.writeU8(retptr, 1)
	return m.writeU8(payload, uint8(code))
}

// WriteOptionPointerEvent writes option<pointer-event> at retptr.
func (m *Memory) WriteOptionPointerEvent(retptr uint32, x, y int32, some bool) error {
	if err := m.check(retptr, m.calc.Calculate(OptionPointerEvent).Size); err != nil {
		return err
	}
	if !some {
		return m.writeU8(retptr, 0)
	}
	_ = m.writeU8(retptr, 1)
	payload := retptr + m.calc.PayloadOffset(OptionPointerEvent)
	offs := m.calc.Calculate(PointerEvent).FieldOffs
	_ = m.writeU32(payload+offs["x"], uint32(x))
	return m.writeU32(payload+offs["y"], uint32(y))
}

// WriteOptionFrameInfo writes option<frame-info> at retptr.
func (m *Memory) WriteOptionFrameInfo(retptr uint32, seq, timestampMs uint64, some bool) error {
	if err := m.check(retptr, m.calc.Calculate(OptionFrameInfo).Size); err != nil {
		return err
	}
	if !some {
		return m.writeU8(retptr, 0)
	}
	_ = m.writeU8(retptr, 1)
	payload := retptr + m.calc.PayloadOffset(OptionFrameInfo)
	offs := m.calc.Calculate(FrameInfo).FieldOffs
	_ = m.writeU64(payload+offs["seq"], seq)
	return m.writeU64(payload+offs["timestamp-ms"], timestampMs)
}

func mulU32(a, b uint32) (uint32, bool) {
	r := uint64(a) * uint64(b)
	if r > 1<<32-1 {
		return 0, false
	}
	return uint32(r), true
}
