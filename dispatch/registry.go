package dispatch

import (
	"fmt"
	"sync"

	"github.com/sghaida/precodita/internal/log"
)

// Registry is the append-only ledger of backends created in an Env.
//
// Backends carrying a callback are additionally kept in the callback list,
// whose order is the order callbacks fire in when a Dispatchable is created.
type Registry struct {
	mu        sync.RWMutex
	backends  []*Backend
	callbacks []*Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) add(b *Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends = append(r.backends, b)
	if b.callback != nil {
		r.callbacks = append(r.callbacks, b)
	}
}

// Backends returns every backend in creation order.
func (r *Registry) Backends() []*Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Backend(nil), r.backends...)
}

// Callbacks returns the callback-bearing backends in creation order.
func (r *Registry) Callbacks() []*Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Backend(nil), r.callbacks...)
}

// Lookup returns the first backend created with name.
func (r *Registry) Lookup(name string) (*Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.backends {
		if b.name == name {
			return b, true
		}
	}
	return nil, false
}

// Len returns the number of backends.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.backends)
}

// publish announces a new Dispatchable to every callback backend, in
// registration order. The first failing callback stops the fan-out.
//
// The callback list is snapshotted under the lock, so callbacks may
// themselves create backends without deadlocking.
func (r *Registry) publish(d *Dispatchable) error {
	for _, b := range r.Callbacks() {
		log.Debug(log.CatRegistry, "late registration", "backend", b.name, "function", d.name)
		if err := notify(b, d); err != nil {
			log.ErrorErr(log.CatRegistry, "callback failed", err, "backend", b.name, "function", d.name)
			return err
		}
	}
	return nil
}

// notify runs b's callback and converts panics into a *CallbackError.
func notify(b *Backend, d *Dispatchable) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CallbackError{
				Backend:  b.name,
				Function: d.name,
				Err:      fmt.Errorf("%w: %v", ErrCallbackPanic, rec),
			}
		}
	}()

	if cbErr := b.callback(b, d); cbErr != nil {
		return &CallbackError{Backend: b.name, Function: d.name, Err: cbErr}
	}
	return nil
}
