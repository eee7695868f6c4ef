// Package precodita provides overridable multiple dispatch for Go.
//
// Generic functions pick their implementation at call time from the runtime
// types of selected arguments. Implementations are attached per backend,
// possibly by code loaded after the function was defined, and callers can
// force a backend for a scope.
//
//   - dispatch: the engine (backends, dispatchables, resolver, override scopes)
//   - cmd/precodita: a CLI that resolves YAML dispatch scenarios
//   - examples/arrays: an array/matrix domain wired through dispatch
//
// Import
//
//	"github.com/sghaida/precodita/dispatch"
package precodita
