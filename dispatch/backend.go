package dispatch

import (
	"github.com/google/uuid"
)

// Callback is notified once for every Dispatchable created after the backend.
// It typically registers an implementation on d. A non-nil error aborts the
// creation of d.
type Callback func(b *Backend, d *Dispatchable) error

// Backend is a named implementation target. It declares which types it
// handles and which types it is preferred over. Backends are immutable and
// compared by identity; the name is for display only.
type Backend struct {
	id         uuid.UUID
	name       string
	types      Set
	supersedes Set
	optIn      bool
	callback   Callback
	env        *Env
}

// BackendOption configures a Backend at construction.
type BackendOption func(*Backend)

// WithSupersedes declares descriptors this backend is preferred over when
// both it and a backend handling them match a call.
func WithSupersedes(ds ...Descriptor) BackendOption {
	return func(b *Backend) { b.supersedes = append(b.supersedes, ds...) }
}

// OptIn makes the backend inert unless it is on the override stack.
func OptIn() BackendOption {
	return func(b *Backend) { b.optIn = true }
}

// WithCallback sets the late-registration callback.
func WithCallback(cb Callback) BackendOption {
	return func(b *Backend) { b.callback = cb }
}

// NewBackend creates a backend in the default Env.
func NewBackend(name string, types Set, opts ...BackendOption) *Backend {
	return defaultEnv.NewBackend(name, types, opts...)
}

func (b *Backend) ID() uuid.UUID { return b.id }
func (b *Backend) Name() string { return b.name }
func (b *Backend) OptIn() bool { return b.optIn }
func (b *Backend) HasCallback() bool { return b.callback != nil }
func (b *Backend) String() string { return b.name }

// Types returns a copy of the handled descriptors.
func (b *Backend) Types() Set { return append(Set(nil), b.types...) }

// Supersedes returns a copy of the superseded descriptors.
func (b *Backend) Supersedes() Set { return append(Set(nil), b.supersedes...) }

// Env returns the environment the backend was created in.
func (b *Backend) Env() *Env { return b.env }

// Enable pushes b onto its Env's override stack. The returned release pops it.
//
//	defer b.Enable()()
func (b *Backend) Enable() (release func()) {
	return b.env.overrides.Push(b)
}

// With runs fn with b pushed onto its Env's override stack. b is popped on
// every exit path, panics included. fn's error is returned unchanged.
func (b *Backend) With(fn func() error) error {
	return b.env.overrides.With(b, fn)
}
