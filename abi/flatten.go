package abi

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Canonical ABI flattening limits.
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// FlattenType flattens a WIT type to core wasm types.
func FlattenType(t wit.Type) []api.ValueType {
	if t == nil {
		return nil
	}

	switch v := t.(type) {
	case wit.Bool, wit.U8, wit.U16, wit.U32, wit.S8, wit.S16, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32} // ptr, len
	case *wit.TypeDef:
		return flattenTypeDef(v)
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}

func flattenTypeDef(td *wit.TypeDef) []api.ValueType {
	if td == nil || td.Kind == nil {
		return []api.ValueType{api.ValueTypeI32}
	}

	switch kind := td.Kind.(type) {
	case *wit.Record:
		var flat []api.ValueType
		for _, field := range kind.Fields {
			flat = append(flat, FlattenType(field.Type)...)
		}
		return flat
	case *wit.List:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.Enum, *wit.Own, *wit.Borrow:
		return []api.ValueType{api.ValueTypeI32}
	case *wit.Option:
		flat := []api.ValueType{api.ValueTypeI32}
		return append(flat, FlattenType(kind.Type)...)
	case *wit.Result:
		return flattenResult(kind)
	case wit.Type:
		return FlattenType(kind)
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}

// flattenResult flattens result<T, E> as discriminant + union(T, E).
func flattenResult(r *wit.Result) []api.ValueType {
	var payload []api.ValueType
	if r.OK != nil {
		payload = FlattenType(r.OK)
	}
	if r.Err != nil {
		for i, ft := range FlattenType(r.Err) {
			if i < len(payload) {
				payload[i] = joinTypes(payload[i], ft)
			} else {
				payload = append(payload, ft)
			}
		}
	}
	return append([]api.ValueType{api.ValueTypeI32}, payload...)
}

// joinTypes unions two core types sharing a payload slot.
func joinTypes(a, b api.ValueType) api.ValueType {
	if a == b {
		return a
	}
	if (a == api.ValueTypeI32 && b == api.ValueTypeF32) ||
		(a == api.ValueTypeF32 && b == api.ValueTypeI32) {
		return api.ValueTypeI32
	}
	return api.ValueTypeI64
}

// Signature is the core wasm shape of a lowered import.
type Signature struct {
	Params  []api.ValueType
	Results []api.ValueType
	// RetPtr is set when the result does not fit in MaxFlatResults and the
	// guest passes a pointer to a result area as the last parameter.
	RetPtr bool
}

// Lower computes the core signature a guest uses to call an imported
// function with the given WIT params and result.
func Lower(params []wit.Type, result wit.Type) Signature {
	var sig Signature
	for _, p := range params {
		sig.Params = append(sig.Params, FlattenType(p)...)
	}
	if len(sig.Params) > MaxFlatParams {
		sig.Params = []api.ValueType{api.ValueTypeI32}
	}

	results := FlattenType(result)
	if len(results) > MaxFlatResults {
		sig.Params = append(sig.Params, api.ValueTypeI32)
		sig.RetPtr = true
		results = nil
	}
	sig.Results = results
	return sig
}
