package dispatch

import (
	"reflect"

	"github.com/sghaida/precodita/internal/log"
)

// Selection is the outcome of a resolution.
type Selection struct {
	// Backend is the selected backend, nil when the fallback was taken.
	Backend *Backend

	// Func is the implementation to invoke.
	Func Func

	// Fallback is true when no backend matched and the fallback was used.
	Fallback bool
}

// resolve picks the implementation for a call dispatching on types.
// overrides is the effective override list, top first.
//
//  1. candidates: registered backends, opt-in ones only when overridden;
//  2. matching: candidates accepting at least one of types;
//  3. none: fallback or *NoMatchingBackendError; one: selected;
//  4. several: the matching backend highest on the override list wins;
//     otherwise dominated backends are dropped and a remaining tie goes
//     to the tie policy.
//
// The override check in step 4 runs before the specificity filter on
// purpose: an override selects its backend even when a more specific one
// matches.
func (d *Dispatchable) resolve(types []reflect.Type, overrides []*Backend) (Selection, error) {
	rank := make(map[*Backend]int, len(overrides))
	for i, b := range overrides {
		if _, seen := rank[b]; !seen {
			rank[b] = i
		}
	}

	d.mu.RLock()
	var matching []*Backend
	for _, b := range d.order {
		if _, on := rank[b]; b.optIn && !on {
			continue
		}
		if matchesAny(b.types, types) {
			matching = append(matching, b)
		}
	}
	impls := make(map[*Backend]Func, len(matching))
	for _, b := range matching {
		impls[b] = d.impls[b]
	}
	d.mu.RUnlock()

	pick := func(b *Backend, why string) (Selection, error) {
		log.Debug(log.CatDispatch, "resolved", "function", d.name, "backend", b.name, "by", why)
		return Selection{Backend: b, Func: impls[b]}, nil
	}

	switch len(matching) {
	case 0:
		if d.fallback != nil {
			log.Debug(log.CatDispatch, "resolved", "function", d.name, "by", "fallback")
			return Selection{Func: d.fallback, Fallback: true}, nil
		}
		return Selection{}, &NoMatchingBackendError{Function: d.name, Types: typeNames(types)}
	case 1:
		return pick(matching[0], "single match")
	}

	var top *Backend
	for _, b := range matching {
		if r, on := rank[b]; on && (top == nil || r < rank[top]) {
			top = b
		}
	}
	if top != nil {
		return pick(top, "override")
	}

	best := mostSpecific(matching, types)
	if len(best) == 0 {
		// Pairwise domination is not transitive; a cycle leaves everyone tied.
		best = matching
	}
	if len(best) == 1 {
		return pick(best[0], "specificity")
	}

	if d.tiePolicy() == TieRegistrationOrder {
		return pick(best[0], "registration order")
	}
	names := make([]string, len(best))
	for i, b := range best {
		names[i] = b.name
	}
	return Selection{}, &AmbiguousBackendError{Function: d.name, Candidates: names}
}

// mostSpecific drops every backend dominated by another one, keeping order.
func mostSpecific(matching []*Backend, types []reflect.Type) []*Backend {
	out := make([]*Backend, 0, len(matching))
	for i, b := range matching {
		dominated := false
		for j, other := range matching {
			if i != j && Compare(other, b, types) == MoreSpecific {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, b)
		}
	}
	return out
}

func (d *Dispatchable) tiePolicy() TiePolicy {
	if d.tie != nil {
		return *d.tie
	}
	return d.env.tie
}

func typeNames(types []reflect.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
