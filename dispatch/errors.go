package dispatch

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNoMatchingBackend is matched (errors.Is) by every *NoMatchingBackendError.
	ErrNoMatchingBackend = errors.New("dispatch: no matching backend")

	// ErrAmbiguousBackend is matched (errors.Is) by every *AmbiguousBackendError.
	ErrAmbiguousBackend = errors.New("dispatch: ambiguous backend")

	// ErrCallbackPanic is wrapped by a *CallbackError when a late-registration
	// callback panics instead of returning an error.
	ErrCallbackPanic = errors.New("dispatch: panic in backend callback")

	// ErrNilBackend is returned (or panicked with) when a nil *Backend is registered.
	ErrNilBackend = errors.New("dispatch: nil backend")

	// ErrNilImplementation is returned when a nil Func is registered.
	ErrNilImplementation = errors.New("dispatch: nil implementation")

	// ErrNilExtractor is returned when a Dispatchable is created without an extractor.
	ErrNilExtractor = errors.New("dispatch: nil extractor")
)

// NoMatchingBackendError is returned when no candidate backend matches the
// dispatched types and the Dispatchable has no fallback.
type NoMatchingBackendError struct {
	// Function is the Dispatchable name.
	Function string

	// Types lists the dispatched runtime types (empty when nothing was dispatched on).
	Types []string
}

// Error implements the error interface.
func (e *NoMatchingBackendError) Error() string {
	// Example: dispatch: no matching backend for "sum" (types: string)
	msg := "dispatch: no matching backend for " + strconv.Quote(e.Function)
	if len(e.Types) == 0 {
		return msg + " (no dispatchable arguments)"
	}
	return msg + " (types: " + strings.Join(e.Types, ", ") + ")"
}

// Is reports whether target is ErrNoMatchingBackend.
func (e *NoMatchingBackendError) Is(target error) bool { return target == ErrNoMatchingBackend }

// AmbiguousBackendError is returned when several equally specific backends
// match and none of them is on the override stack.
type AmbiguousBackendError struct {
	Function string

	// Candidates holds the tied backend names in registration order.
	Candidates []string
}

// Error implements the error interface.
func (e *AmbiguousBackendError) Error() string {
	// Example: dispatch: ambiguous backends for "sum": "a", "b"
	quoted := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		quoted[i] = strconv.Quote(c)
	}
	return "dispatch: ambiguous backends for " + strconv.Quote(e.Function) + ": " + strings.Join(quoted, ", ")
}

// Is reports whether target is ErrAmbiguousBackend.
func (e *AmbiguousBackendError) Is(target error) bool { return target == ErrAmbiguousBackend }

// CallbackError reports a failed late-registration callback. It aborts the
// creation of the Dispatchable the callback was notified about.
type CallbackError struct {
	Backend  string
	Function string
	Err      error
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	// Example: dispatch: backend "generic" callback failed for "sum": boom
	return "dispatch: backend " + strconv.Quote(e.Backend) + " callback failed for " +
		strconv.Quote(e.Function) + ": " + e.Err.Error()
}

// Unwrap returns the callback's error.
func (e *CallbackError) Unwrap() error { return e.Err }
