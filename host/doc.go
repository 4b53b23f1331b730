// Package host implements the interfaces a guest imports: graphics
// contexts, pointer events, animation frames, wasi:io/poll and print.
//
// A Host is the explicit state behind them: one resource table, one event
// bus and one graphics manager. Each interface type follows the
// Namespace/Register convention:
//
//	h := host.New(host.Options{Logger: logger})
//	for _, iface := range h.Interfaces() {
//		fmt.Println(iface.Namespace(), len(iface.Register()))
//	}
//
// Operations are serialized by a dispatch lock. The only operations that
// suspend are pollable.block and poll; they resolve their handles under the
// lock and wait outside it, so dropping a subscription cancels them.
// Dropping a handle that was already released is a no-op; dropping a handle
// that was never issued fails with errors.ErrNoSuchHandle.
//
// Every operation runs in an OpenTelemetry span named "<namespace>#<op>".
package host
