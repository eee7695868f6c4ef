package dispatch

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Descriptor names a set of runtime types a backend can handle.
//
// Two flavours exist:
//   - nominal: TypeOf[T]() / Type(t), membership by type identity or, for
//     interface types, by implementation;
//   - capability: Capability(name, pred) / HasMethods(...), a named predicate
//     over the exposed method set (duck typing).
type Descriptor interface {
	// MatchType reports whether values of type t belong to the descriptor.
	MatchType(t reflect.Type) bool

	// Key identifies the descriptor; descriptors with equal keys are the same.
	// Nominal keys are unique per reflect.Type, not per type name.
	Key() string

	String() string
}

// Set is an unordered collection of descriptors.
type Set []Descriptor

// Types builds a Set.
func Types(ds ...Descriptor) Set { return Set(ds) }

// MatchType reports whether any descriptor in s matches t.
func (s Set) MatchType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for _, d := range s {
		if d != nil && d.MatchType(t) {
			return true
		}
	}
	return false
}

// Contains reports whether s holds a descriptor identical to d.
func (s Set) Contains(d Descriptor) bool {
	for _, x := range s {
		if x != nil && same(x, d) {
			return true
		}
	}
	return false
}

// same reports descriptor identity: type identity for nominal descriptors,
// key equality otherwise.
func same(a, b Descriptor) bool {
	an, aok := a.(nominal)
	bn, bok := b.(nominal)
	if aok || bok {
		return aok && bok && an.t == bn.t
	}
	return a.Key() == b.Key()
}

func (s Set) String() string {
	names := make([]string, 0, len(s))
	for _, d := range s {
		if d != nil {
			names = append(names, d.String())
		}
	}
	return "{" + strings.Join(names, ", ") + "}"
}

type nominal struct{ t reflect.Type }

// TypeOf returns the nominal descriptor of T.
//
// A concrete T matches exactly T. An interface T matches every type that
// implements it.
func TypeOf[T any]() Descriptor { return Type(reflect.TypeFor[T]()) }

// Type returns the nominal descriptor of t. It panics if t is nil.
func Type(t reflect.Type) Descriptor {
	if t == nil {
		panic("dispatch: Type(nil)")
	}
	return nominal{t: t}
}

func (n nominal) MatchType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t == n.t {
		return true
	}
	return n.t.Kind() == reflect.Interface && t.Implements(n.t)
}

func (n nominal) Key() string { return "type:" + typeKey(n.t) }
func (n nominal) String() string { return n.t.String() }

type capability struct {
	name string
	pred func(reflect.Type) bool
}

// Capability returns a descriptor backed by a named predicate. The name is
// the descriptor identity: two capabilities with the same name are equal.
func Capability(name string, pred func(reflect.Type) bool) Descriptor {
	return capability{name: name, pred: pred}
}

// HasMethods returns a capability matching every type whose method set
// contains all the given method names.
func HasMethods(names ...string) Descriptor {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return capability{
		name: "methods(" + strings.Join(sorted, ",") + ")",
		pred: func(t reflect.Type) bool {
			for _, m := range sorted {
				if _, ok := t.MethodByName(m); !ok {
					return false
				}
			}
			return true
		},
	}
}

func (c capability) MatchType(t reflect.Type) bool {
	return t != nil && c.pred != nil && c.pred(t)
}

func (c capability) Key() string { return "cap:" + c.name }
func (c capability) String() string { return c.name }

var (
	typeIDs sync.Map // reflect.Type -> uint64
	typeSeq atomic.Uint64
)

// typeKey returns a string unique to t within the process. Type names are
// not enough: t.String() only carries the package name, and block-scoped
// types may share a name.
func typeKey(t reflect.Type) string {
	id, ok := typeIDs.Load(t)
	if !ok {
		id, _ = typeIDs.LoadOrStore(t, typeSeq.Add(1))
	}
	return strconv.FormatUint(id.(uint64), 10) + ":" + t.String()
}

// concrete returns the single type a descriptor stands for, if any.
// Only nominal descriptors of non-interface types have one.
func concrete(d Descriptor) (reflect.Type, bool) {
	n, ok := d.(nominal)
	if !ok || n.t.Kind() == reflect.Interface {
		return nil, false
	}
	return n.t, true
}

// Matches reports whether the runtime type of value satisfies any descriptor
// in set. Skipped values (see IsSkipped) never match.
func Matches(value any, set Set) bool {
	if IsSkipped(value) {
		return false
	}
	return set.MatchType(reflect.TypeOf(value))
}

// IsSkipped reports whether value is the "nothing to dispatch on" marker:
// untyped nil, or a nil pointer, interface, map, slice, func or channel.
func IsSkipped(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// Order is the outcome of comparing two backends for one call.
type Order int

const (
	Incomparable Order = iota
	MoreSpecific
	LessSpecific
)

func (o Order) String() string {
	switch o {
	case MoreSpecific:
		return "more specific"
	case LessSpecific:
		return "less specific"
	default:
		return "incomparable"
	}
}

// Compare orders backends a and b for a call dispatching on types.
//
// a dominates b when every descriptor of b that matches the call is covered
// by a: listed in a's supersedes set, or refined by a matching descriptor of a
// (a concrete type that b's descriptor also accepts). Mutual or absent
// domination is Incomparable.
func Compare(a, b *Backend, types []reflect.Type) Order {
	ab := dominates(a, b, types)
	ba := dominates(b, a, types)
	switch {
	case ab && !ba:
		return MoreSpecific
	case ba && !ab:
		return LessSpecific
	default:
		return Incomparable
	}
}

func dominates(a, b *Backend, types []reflect.Type) bool {
	bm := matched(b.types, types)
	if len(bm) == 0 {
		return false
	}
	am := matched(a.types, types)
	for _, d := range bm {
		if !covers(a, am, d) {
			return false
		}
	}
	return true
}

func covers(a *Backend, aMatched []Descriptor, d Descriptor) bool {
	t, isConcrete := concrete(d)
	for _, s := range a.supersedes {
		if same(s, d) || (isConcrete && s.MatchType(t)) {
			return true
		}
	}
	for _, ad := range aMatched {
		if refines(ad, d) {
			return true
		}
	}
	return false
}

// refines reports whether a stands for a strictly narrower set than b.
func refines(a, b Descriptor) bool {
	at, ok := concrete(a)
	if !ok {
		return false
	}
	if bt, ok := concrete(b); ok && bt == at {
		return false
	}
	return b.MatchType(at)
}

// matched returns the descriptors of set that accept at least one of types.
func matched(set Set, types []reflect.Type) []Descriptor {
	var out []Descriptor
	for _, d := range set {
		if d == nil {
			continue
		}
		for _, t := range types {
			if d.MatchType(t) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func matchesAny(set Set, types []reflect.Type) bool {
	for _, t := range types {
		if set.MatchType(t) {
			return true
		}
	}
	return false
}
