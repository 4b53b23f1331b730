package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseTable        Phase = "table"        // capability table
	PhaseGraphics     Phase = "graphics"     // graphics context state machine
	PhaseSubscription Phase = "subscription" // readiness bridge
	PhaseEvent        Phase = "event"        // multicast bus
	PhaseDispatch     Phase = "dispatch"     // host interface dispatch
	PhaseBinding      Phase = "binding"      // guest ABI glue
	PhaseConfig       Phase = "config"       // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindNoSuchHandle    Kind = "no_such_handle"
	KindStaleHandle     Kind = "stale_handle"
	KindUnconfigured    Kind = "unconfigured"
	KindSurfaceLost     Kind = "surface_lost"
	KindSurfaceTimeout  Kind = "surface_timeout"
	KindSurfaceOutdated Kind = "surface_outdated"
	KindSubscriptionLag Kind = "subscription_lag"
	KindCanceled        Kind = "canceled"
	KindClosed          Kind = "closed"
	KindInvalidInput    Kind = "invalid_input"
	KindOutOfMemory     Kind = "out_of_memory"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindMissingImport   Kind = "missing_import"
	KindInstantiation   Kind = "instantiation"
)

// Sentinels for errors.Is. They carry no phase, so they match an error of
// the same kind raised in any phase.
var (
	ErrNoSuchHandle    = &Error{Kind: KindNoSuchHandle}
	ErrStaleHandle     = &Error{Kind: KindStaleHandle}
	ErrUnconfigured    = &Error{Kind: KindUnconfigured}
	ErrSurfaceLost     = &Error{Kind: KindSurfaceLost}
	ErrSurfaceTimeout  = &Error{Kind: KindSurfaceTimeout}
	ErrSurfaceOutdated = &Error{Kind: KindSurfaceOutdated}
	ErrSubscriptionLag = &Error{Kind: KindSubscriptionLag}
	ErrCanceled        = &Error{Kind: KindCanceled}
	ErrClosed          = &Error{Kind: KindClosed}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrMissingImport   = &Error{Kind: KindMissingImport}
)

// Error is the structured error type used throughout the host
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
	Handle uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Handle != 0 {
		b.WriteString(" (handle ")
		b.WriteString(strconv.FormatUint(uint64(e.Handle), 10))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone. A stale handle is also a no-such-handle.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return e.Kind == KindStaleHandle && t.Kind == KindNoSuchHandle
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Handle sets the offending handle
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NoSuchHandle creates an error for a handle the table never issued
func NoSuchHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoSuchHandle,
		Handle: handle,
	}
}

// StaleHandle creates an error for a handle whose entry was already released
func StaleHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStaleHandle,
		Handle: handle,
		Detail: "handle was released",
	}
}

// ForeignHandle creates an error for a live handle of another resource type
func ForeignHandle(phase Phase, handle uint32, want, got uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoSuchHandle,
		Handle: handle,
		Detail: fmt.Sprintf("resource type %d, want %d", got, want),
	}
}

// Unconfigured creates an error for a graphics context with no backend
func Unconfigured(handle uint32) *Error {
	return &Error{
		Phase:  PhaseGraphics,
		Kind:   KindUnconfigured,
		Handle: handle,
		Detail: "configure must select a backend first",
	}
}

// Surface wraps a native surface acquisition failure
func Surface(kind Kind, handle uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseGraphics,
		Kind:   kind,
		Handle: handle,
		Detail: "acquire next frame",
		Cause:  cause,
	}
}

// SubscriptionLag reports events overwritten before a slow subscriber read them
func SubscriptionLag(missed uint64, cause error) *Error {
	return &Error{
		Phase:  PhaseSubscription,
		Kind:   KindSubscriptionLag,
		Detail: fmt.Sprintf("missed %d events", missed),
		Value:  missed,
		Cause:  cause,
	}
}

// Canceled reports a wait that ended without an event
func Canceled(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCanceled,
		Detail: "wait canceled",
		Cause:  cause,
	}
}

// Closed reports an operation on a shut down component
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " closed",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds guest memory access error
func OutOfBounds(phase Phase, offset, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("memory access at %d (size %d) out of range", offset, size),
		Value:  offset,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseBinding,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImport is one guest import the host cannot resolve.
type MissingImport struct {
	Namespace string
	Function  string
}

func (m MissingImport) String() string {
	return m.Namespace + "#" + m.Function
}

// MissingImportsError lists every guest import left unresolved at link
// time. It matches ErrMissingImport.
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError builds the error from "namespace#function" keys.
func NewMissingImportsError(keys []string) *MissingImportsError {
	e := &MissingImportsError{Imports: make([]MissingImport, 0, len(keys))}
	for _, key := range keys {
		ns, fn, _ := strings.Cut(key, "#")
		e.Imports = append(e.Imports, MissingImport{Namespace: ns, Function: fn})
	}
	return e
}

// Namespaces returns the namespaces with missing functions, in first-seen
// order.
func (e *MissingImportsError) Namespaces() []string {
	var out []string
	seen := map[string]bool{}
	for _, imp := range e.Imports {
		if !seen[imp.Namespace] {
			seen[imp.Namespace] = true
			out = append(out, imp.Namespace)
		}
	}
	return out
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[binding] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[binding] missing_import: %d guest import(s) unresolved", len(e.Imports))
	for _, ns := range e.Namespaces() {
		fmt.Fprintf(&b, "; %s: ", ns)
		n := 0
		for _, imp := range e.Imports {
			if imp.Namespace != ns {
				continue
			}
			if n > 0 {
				b.WriteString(", ")
			}
			b.WriteString(imp.Function)
			n++
		}
	}
	return b.String()
}

// Is matches any MissingImportsError and the missing_import kind.
func (e *MissingImportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingImportsError:
		return true
	case *Error:
		return t.Kind == KindMissingImport && (t.Phase == "" || t.Phase == PhaseBinding)
	}
	return false
}
