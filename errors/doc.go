// Package errors provides structured error types for the canvas host.
//
// Errors are categorized by Phase (which component raised them) and Kind
// (the failure taxonomy a guest sees). The Error type carries the operation
// name, the offending handle and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseGraphics, errors.KindUnconfigured).
//		Op("graphics-context.get-current-buffer").
//		Handle(h).
//		Detail("no backend selected").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NoSuchHandle(errors.PhaseTable, h)
//	err := errors.SubscriptionLag(missed, cause)
//
// The package-level sentinels (ErrNoSuchHandle, ErrUnconfigured, ...) have no
// phase and match an error of their kind from any component:
//
//	if errors.Is(err, errors.ErrNoSuchHandle) { ... }
//
// A stale handle (one the table issued and later released) also matches
// ErrNoSuchHandle.
package errors
