package dispatch

import (
	"context"

	"github.com/google/uuid"
)

// TiePolicy decides what happens when several equally specific backends
// match a call and none of them is overridden.
type TiePolicy int

const (
	// TieAmbiguous fails the call with an *AmbiguousBackendError.
	TieAmbiguous TiePolicy = iota

	// TieRegistrationOrder picks the tied backend registered first on the
	// Dispatchable.
	TieRegistrationOrder
)

func (p TiePolicy) String() string {
	if p == TieRegistrationOrder {
		return "registration"
	}
	return "ambiguous"
}

// Env is the process-scoped state dispatch works against: one backend
// Registry and one shared OverrideStack. Backends and Dispatchables belong
// to the Env they were created in.
//
// Most programs use the default Env through the package-level helpers.
// Separate Envs give fully isolated registries and stacks.
type Env struct {
	registry  *Registry
	overrides *OverrideStack
	tie       TiePolicy
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithTiePolicy sets the Env-wide tie policy (default TieAmbiguous).
func WithTiePolicy(p TiePolicy) EnvOption {
	return func(e *Env) { e.tie = p }
}

// NewEnv returns an isolated Env.
func NewEnv(opts ...EnvOption) *Env {
	e := &Env{
		registry:  NewRegistry(),
		overrides: NewOverrideStack(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

var defaultEnv = NewEnv()

// Default returns the process-wide Env.
func Default() *Env { return defaultEnv }

func (e *Env) Registry() *Registry { return e.registry }
func (e *Env) Overrides() *OverrideStack { return e.overrides }
func (e *Env) TiePolicy() TiePolicy { return e.tie }

// NewBackend creates a backend and records it in the Env's registry.
func (e *Env) NewBackend(name string, types Set, opts ...BackendOption) *Backend {
	b := &Backend{
		id:    uuid.New(),
		name:  name,
		types: append(Set(nil), types...),
		env:   e,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	e.registry.add(b)
	return b
}

// With runs fn with b on the Env's shared override stack.
func (e *Env) With(b *Backend, fn func() error) error {
	return e.overrides.With(b, fn)
}

// effectiveOverrides merges context overrides (higher priority) with the
// shared stack, top first.
func (e *Env) effectiveOverrides(ctx context.Context) []*Backend {
	scoped := ContextOverrides(ctx)
	shared := e.overrides.Snapshot()
	if len(scoped) == 0 {
		return shared
	}
	return append(scoped, shared...)
}
