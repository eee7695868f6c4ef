package dispatch

import (
	"context"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/sghaida/precodita/internal/log"
)

// Func is an implementation (or fallback) of a generic function. It receives
// the original, un-extracted call arguments.
type Func func(args ...any) (any, error)

// Extractor reduces a call's arguments to the values dispatched on.
// Skipped values (see IsSkipped) are ignored.
type Extractor func(args ...any) ([]any, error)

// Positions returns an Extractor picking the arguments at the given indexes.
// Missing trailing arguments count as skipped, like an omitted keyword
// argument.
func Positions(idx ...int) Extractor {
	return func(args ...any) ([]any, error) {
		out := make([]any, len(idx))
		for i, p := range idx {
			if p >= 0 && p < len(args) {
				out[i] = args[p]
			}
		}
		return out, nil
	}
}

// Dispatchable is a generic function: an extractor, per-backend
// implementations and an optional fallback.
type Dispatchable struct {
	name      string
	env       *Env
	extractor Extractor
	fallback  Func
	tie       *TiePolicy
	tracer    trace.Tracer

	mu         sync.RWMutex
	impls      map[*Backend]Func
	order      []*Backend
	generation uint64
}

// Option configures a Dispatchable.
type Option func(*Dispatchable)

// WithTieBreak overrides the Env tie policy for one Dispatchable.
func WithTieBreak(p TiePolicy) Option {
	return func(d *Dispatchable) { d.tie = &p }
}

// WithTracer enables a span per CallContext.
func WithTracer(tr trace.Tracer) Option {
	return func(d *Dispatchable) { d.tracer = tr }
}

// New creates a Dispatchable without fallback in the default Env.
func New(name string, extractor Extractor, opts ...Option) (*Dispatchable, error) {
	return defaultEnv.New(name, extractor, opts...)
}

// FromFallback creates a Dispatchable with fallback in the default Env.
func FromFallback(name string, extractor Extractor, fallback Func, opts ...Option) (*Dispatchable, error) {
	return defaultEnv.FromFallback(name, extractor, fallback, opts...)
}

// MustNew is New that panics on error.
func MustNew(name string, extractor Extractor, opts ...Option) *Dispatchable {
	d, err := New(name, extractor, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// New creates a Dispatchable without fallback: calls with no matching backend
// fail with *NoMatchingBackendError.
//
// Every callback backend of the Env is notified, in registration order,
// before New returns. A failing callback aborts creation.
func (e *Env) New(name string, extractor Extractor, opts ...Option) (*Dispatchable, error) {
	return e.newDispatchable(name, extractor, nil, opts)
}

// FromFallback creates a Dispatchable that calls fallback whenever no backend
// matches.
func (e *Env) FromFallback(name string, extractor Extractor, fallback Func, opts ...Option) (*Dispatchable, error) {
	if fallback == nil {
		return nil, ErrNilImplementation
	}
	return e.newDispatchable(name, extractor, fallback, opts)
}

func (e *Env) newDispatchable(name string, extractor Extractor, fallback Func, opts []Option) (*Dispatchable, error) {
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	d := &Dispatchable{
		name:      name,
		env:       e,
		extractor: extractor,
		fallback:  fallback,
		impls:     make(map[*Backend]Func),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if err := e.registry.publish(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatchable) Name() string { return d.name }
func (d *Dispatchable) Env() *Env { return d.env }
func (d *Dispatchable) HasFallback() bool { return d.fallback != nil }

// Backends returns the registered backends in registration order.
func (d *Dispatchable) Backends() []*Backend {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Backend(nil), d.order...)
}

// Implementation returns the Func registered for b.
func (d *Dispatchable) Implementation(b *Backend) (Func, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn, ok := d.impls[b]
	return fn, ok
}

// Add registers fn as b's implementation. Registering b again replaces the
// previous implementation and keeps b's registration slot.
func (d *Dispatchable) Add(b *Backend, fn Func) error {
	if b == nil {
		return ErrNilBackend
	}
	if fn == nil {
		return ErrNilImplementation
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.impls[b]; exists {
		log.Warn(log.CatDispatch, "duplicate registration replaces implementation", "function", d.name, "backend", b.name)
	} else {
		d.order = append(d.order, b)
	}
	d.impls[b] = fn
	d.generation++
	return nil
}

// Register returns a decorator storing its argument as b's implementation and
// returning it unchanged:
//
//	sum.Register(numpy)(func(args ...any) (any, error) { ... })
//
// It panics on a nil backend or implementation.
func (d *Dispatchable) Register(b *Backend) func(Func) Func {
	return func(fn Func) Func {
		if err := d.Add(b, fn); err != nil {
			panic(err)
		}
		return fn
	}
}

// Call dispatches with the shared override stack only.
func (d *Dispatchable) Call(args ...any) (any, error) {
	return d.CallContext(context.Background(), args...)
}

// CallContext extracts the dispatch values from args, resolves a backend and
// invokes its implementation with the original args. Overrides carried by
// ctx outrank the shared stack. Extractor errors are returned unchanged.
func (d *Dispatchable) CallContext(ctx context.Context, args ...any) (res any, err error) {
	ctx, span := d.startSpan(ctx)
	defer func() { endSpan(span, err) }()

	sel, err := d.Lookup(ctx, args...)
	if err != nil {
		return nil, err
	}
	annotateSpan(span, sel)
	return sel.Func(args...)
}

// Lookup performs extraction and resolution without invoking anything.
func (d *Dispatchable) Lookup(ctx context.Context, args ...any) (Selection, error) {
	values, err := d.extractor(args...)
	if err != nil {
		return Selection{}, err
	}
	return d.resolve(dispatchTypes(values), d.env.effectiveOverrides(ctx))
}

// Invoke resolves directly against t, bypassing the extractor, and returns the
// selected implementation. It selects what a call dispatching on a single
// value of type t would select. A nil t dispatches on nothing.
func (d *Dispatchable) Invoke(t reflect.Type) (Func, error) {
	return d.InvokeContext(context.Background(), t)
}

// InvokeContext is Invoke honouring the overrides carried by ctx.
func (d *Dispatchable) InvokeContext(ctx context.Context, t reflect.Type) (Func, error) {
	sel, err := d.resolve(invokeTypes(t), d.env.effectiveOverrides(ctx))
	if err != nil {
		return nil, err
	}
	return sel.Func, nil
}

// InvokeFor is Invoke for the type T.
func InvokeFor[T any](d *Dispatchable) (Func, error) {
	return d.Invoke(reflect.TypeFor[T]())
}

func invokeTypes(t reflect.Type) []reflect.Type {
	if t == nil {
		return nil
	}
	return []reflect.Type{t}
}

func dispatchTypes(values []any) []reflect.Type {
	types := make([]reflect.Type, 0, len(values))
	for _, v := range values {
		if IsSkipped(v) {
			continue
		}
		types = append(types, reflect.TypeOf(v))
	}
	return types
}
