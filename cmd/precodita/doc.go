// Command precodita resolves dispatch scenarios.
//
// A scenario is a YAML file declaring backends, generic functions and calls.
// Running it builds a fresh dispatch environment and prints, for every call,
// which backend was selected (or fallback / no-match / ambiguous) and whether
// that met the call's expectation.
//
// Usage
//
//	precodita demo                      # built-in array demo
//	precodita run scenario.yaml         # run a scenario file
//	precodita backends [scenario.yaml]  # list backends with ids and flags
//	precodita kinds                     # list usable type kinds
//
// Global flags: --config, --debug, --tie-policy ambiguous|registration,
// --color auto|always|never, --trace (print dispatch spans to stderr).
//
// Configuration is read from ./.precodita.yaml (or --config) and PRECODITA_*
// environment variables; flags win.
//
// Scenario format
//
//	name: tied
//	backends:
//	  - {name: x, types: [int]}
//	  - {name: y, types: [int], supersedes: [arraylike], opt_in: true}
//	  - {name: g, types: [arraylike], late: true}
//	functions:
//	  - {name: f, dispatch_on: [0, 2], fallback: true, backends: [x, y]}
//	calls:
//	  - {function: f, args: [int, string, none], expect: x}
//	  - {function: f, args: [int], overrides: [y], expect: y}
//	  - {function: f, invoke: int, context: [y]}
//
// Exit codes: 0 success, 1 failed expectations, 2 usage or input errors.
package main
