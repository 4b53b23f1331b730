// Package binding links a host.Host into a wazero runtime.
//
// Every interface function is lowered to the core signature the canonical
// ABI gives it (see package abi): results that do not fit in one core
// value are written through a trailing return pointer, and list results
// are allocated in guest memory through cabi_realloc. Guest misuse that
// the interface has no error case for, such as dropping a handle that was
// never issued, traps the calling instance.
//
// Imports are matched by namespace, falling back to a semver-compatible
// version of the same package:
//
//	l, err := binding.NewLinker(rt, h, binding.Options{Logger: logger})
//	if err != nil {
//		return err
//	}
//	return l.Run(ctx, wasm)
package binding
