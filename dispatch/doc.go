// Package dispatch provides generic functions whose implementation is picked
// at call time from the runtime types of selected arguments.
//
// The pieces:
//
//   - Backend: a named implementation target declaring the types it handles
//     (Descriptor set) and the types it supersedes. Backends can be opt-in
//     (inert until overridden) and can carry a late-registration Callback.
//   - Dispatchable: a generic function. An Extractor picks the arguments to
//     dispatch on, backends register implementations, an optional fallback
//     handles calls nothing matches.
//   - OverrideStack: scoped, LIFO force-enabling of backends. Overridden
//     backends outrank specificity; it is the only way to activate an opt-in
//     backend.
//   - Env: the Registry and the shared OverrideStack. The package-level
//     helpers use Default(); NewEnv gives an isolated one.
//
// Resolution
//
// A backend matches a call when one of its descriptors accepts the type of
// at least one extracted value. With several matches, the matching backend
// closest to the top of the override list wins. Otherwise backends dominated
// by another match are dropped (see Compare); if a tie remains the Env's
// TiePolicy either fails with *AmbiguousBackendError or picks the first
// registered.
//
// Late registration
//
// Creating a Dispatchable notifies every callback backend of the Env, in
// backend creation order, before the constructor returns. Backends defined in
// packages loaded after the generic function can attach themselves this way.
//
// Concurrency
//
// Registry, OverrideStack and Dispatchable are safe for concurrent use. The
// shared stack is visible to every goroutine of the Env; concurrent call
// paths that need independent scopes should use WithOverride, which carries
// overrides in a context.Context, or separate Envs.
//
// Creating a Dispatchable notifies the callback backends registered at that
// moment. The list is snapshotted before callbacks run, so a backend created
// during the fan-out is not notified for that Dispatchable, only for later
// ones.
//
// Example
//
//	numpy := dispatch.NewBackend("NumPy", dispatch.Types(dispatch.TypeOf[*NDArray]()))
//	sum := dispatch.MustNew("sum", dispatch.Positions(0))
//	sum.Register(numpy)(func(args ...any) (any, error) { ... })
//	res, err := sum.Call(arr)
package dispatch
