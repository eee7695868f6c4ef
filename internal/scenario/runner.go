package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sghaida/precodita/dispatch"
	"github.com/sghaida/precodita/internal/log"
)

// Options tune a run.
type Options struct {
	// TiePolicy applies when the scenario does not set tie_policy.
	TiePolicy dispatch.TiePolicy

	// CacheTTL is passed to the per-function invoke caches.
	CacheTTL time.Duration

	// FunctionOptions are passed to every function, e.g. dispatch.WithTracer.
	FunctionOptions []dispatch.Option
}

// Outcome is the result of one call.
type Outcome struct {
	Index    int
	Call     Call
	Backend  string
	Fallback bool
	Err      error
}

// Result renders the outcome in the vocabulary of Call.Expect.
func (o Outcome) Result() string {
	switch {
	case errors.Is(o.Err, dispatch.ErrNoMatchingBackend):
		return "no-match"
	case errors.Is(o.Err, dispatch.ErrAmbiguousBackend):
		return "ambiguous"
	case o.Err != nil:
		return "error"
	case o.Fallback:
		return "fallback"
	default:
		return o.Backend
	}
}

// Passed reports whether the outcome meets the call's expectation.
// Calls without expectation always pass.
func (o Outcome) Passed() bool {
	return o.Call.Expect == "" || o.Call.Expect == o.Result()
}

// Report collects the outcomes of a run.
type Report struct {
	Scenario string
	Env      *dispatch.Env
	Outcomes []Outcome

	// Late lists "backend/function" pairs registered by callbacks.
	Late []string
}

// Failed counts outcomes that missed their expectation.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Passed() {
			n++
		}
	}
	return n
}

// world is the materialised scenario.
type world struct {
	env       *dispatch.Env
	backends  map[string]*dispatch.Backend
	functions map[string]*dispatch.Dispatchable
	caches    map[string]*dispatch.InvokeCache
}

// build materialises the scenario in a fresh Env.
func build(sc *Scenario, opts Options) (*Report, *world, error) {
	tie := opts.TiePolicy
	if sc.TiePolicy != "" {
		switch sc.TiePolicy {
		case "ambiguous":
			tie = dispatch.TieAmbiguous
		case "registration":
			tie = dispatch.TieRegistrationOrder
		default:
			return nil, nil, invalid("unknown tie_policy %q", sc.TiePolicy)
		}
	}

	rep := &Report{Scenario: sc.Name}
	rt := &world{
		env:       dispatch.NewEnv(dispatch.WithTiePolicy(tie)),
		backends:  make(map[string]*dispatch.Backend, len(sc.Backends)),
		functions: make(map[string]*dispatch.Dispatchable, len(sc.Functions)),
		caches:    make(map[string]*dispatch.InvokeCache, len(sc.Functions)),
	}
	rep.Env = rt.env

	for _, def := range sc.Backends {
		var bopts []dispatch.BackendOption
		if len(def.Supersedes) > 0 {
			bopts = append(bopts, dispatch.WithSupersedes(descriptors(def.Supersedes)...))
		}
		if def.OptIn {
			bopts = append(bopts, dispatch.OptIn())
		}
		if def.Late {
			bopts = append(bopts, dispatch.WithCallback(func(b *dispatch.Backend, d *dispatch.Dispatchable) error {
				rep.Late = append(rep.Late, b.Name()+"/"+d.Name())
				return d.Add(b, report(b))
			}))
		}
		rt.backends[def.Name] = rt.env.NewBackend(def.Name, descriptors(def.Types), bopts...)
	}

	for _, def := range sc.Functions {
		var (
			d   *dispatch.Dispatchable
			err error
		)
		extractor := dispatch.Positions(def.DispatchOn...)
		if def.Fallback {
			d, err = rt.env.FromFallback(def.Name, extractor, func(args ...any) (any, error) {
				return fallbackResult{}, nil
			}, opts.FunctionOptions...)
		} else {
			d, err = rt.env.New(def.Name, extractor, opts.FunctionOptions...)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("creating function %q: %w", def.Name, err)
		}
		for _, name := range def.Backends {
			b := rt.backends[name]
			if err := d.Add(b, report(b)); err != nil {
				return nil, nil, fmt.Errorf("registering %q on %q: %w", name, def.Name, err)
			}
		}
		rt.functions[def.Name] = d
		rt.caches[def.Name] = dispatch.NewInvokeCache(d, opts.CacheTTL)
	}
	return rep, rt, nil
}

// Run builds the scenario and resolves every call.
func Run(ctx context.Context, sc *Scenario, opts Options) (*Report, error) {
	rep, rt, err := build(sc, opts)
	if err != nil {
		return nil, err
	}
	for i, c := range sc.Calls {
		out := rt.resolve(ctx, c)
		out.Index = i
		out.Call = c
		log.Debug(log.CatCLI, "call resolved", "index", i, "function", c.Function, "result", out.Result())
		rep.Outcomes = append(rep.Outcomes, out)
	}
	return rep, nil
}

func (rt *world) resolve(ctx context.Context, c Call) Outcome {
	for _, name := range c.Context {
		ctx = dispatch.WithOverride(ctx, rt.backends[name])
	}
	return rt.enter(ctx, c, c.Overrides)
}

// enter pushes the overrides outermost first, then resolves inside.
func (rt *world) enter(ctx context.Context, c Call, overrides []string) (out Outcome) {
	if len(overrides) > 0 {
		_ = rt.backends[overrides[0]].With(func() error {
			out = rt.enter(ctx, c, overrides[1:])
			return nil
		})
		return out
	}

	d := rt.functions[c.Function]
	if c.IsInvoke() {
		t, _ := typeFor(c.Invoke)
		fn, err := rt.caches[c.Function].InvokeContext(ctx, t)
		if err != nil {
			return Outcome{Err: err}
		}
		return outcome(fn())
	}

	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		args[i], _ = sampleFor(a)
	}
	return outcome(d.CallContext(ctx, args...))
}

// report is the implementation every scenario backend registers: it returns
// its backend's name.
func report(b *dispatch.Backend) dispatch.Func {
	name := b.Name()
	return func(args ...any) (any, error) { return name, nil }
}

// fallbackResult is what scenario fallbacks return.
type fallbackResult struct{}

func outcome(res any, err error) Outcome {
	if err != nil {
		return Outcome{Err: err}
	}
	if _, ok := res.(fallbackResult); ok {
		return Outcome{Fallback: true}
	}
	name, _ := res.(string)
	return Outcome{Backend: name}
}

func descriptors(names []string) dispatch.Set {
	set := make(dispatch.Set, 0, len(names))
	for _, n := range names {
		if d, ok := descriptorFor(n); ok {
			set = append(set, d)
		}
	}
	return set
}
