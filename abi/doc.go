// Package abi describes the host interfaces in WIT types and implements the
// canonical ABI pieces the bindings need: memory layout, flattening of
// function signatures to core wasm types, and lowering of results into
// guest memory.
//
// Layouts follow the Component Model rules:
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8)
//   - Records: fields laid out sequentially with padding for alignment
//   - Options and results: a one-byte discriminant, then the payload at the
//     payload's alignment
//   - Lists and strings: a (pointer, length) pair, contents elsewhere
//
// An import whose flattened result needs more than one core value takes a
// trailing return pointer instead; Lower reports this as Signature.RetPtr.
package abi
