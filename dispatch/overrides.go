package dispatch

import (
	"context"
	"sync"

	"github.com/sghaida/precodita/internal/log"
)

// OverrideStack is an ordered list of force-enabled backends. The most
// recently pushed entry has the highest priority.
//
// Every Push must be balanced by calling its release func; With does that on
// every exit path. Releasing removes exactly the pushed entry, so the stack
// returns to its previous contents and order.
type OverrideStack struct {
	mu      sync.Mutex
	entries []overrideEntry
	seq     uint64
}

type overrideEntry struct {
	id      uint64
	backend *Backend
}

// NewOverrideStack returns an empty stack.
func NewOverrideStack() *OverrideStack {
	return &OverrideStack{}
}

// Push puts b on top of the stack. The returned release is idempotent.
func (s *OverrideStack) Push(b *Backend) (release func()) {
	if b == nil {
		panic(ErrNilBackend)
	}

	s.mu.Lock()
	s.seq++
	id := s.seq
	s.entries = append(s.entries, overrideEntry{id: id, backend: b})
	depth := len(s.entries)
	s.mu.Unlock()

	log.Debug(log.CatOverride, "push", "backend", b.name, "depth", depth)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *OverrideStack) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].id != id {
			continue
		}
		if i != len(s.entries)-1 {
			log.Warn(log.CatOverride, "out of order release", "backend", s.entries[i].backend.name)
		}
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		log.Debug(log.CatOverride, "pop", "depth", len(s.entries))
		return
	}
}

// With runs fn with b pushed, popping it on every exit path.
func (s *OverrideStack) With(b *Backend, fn func() error) error {
	release := s.Push(b)
	defer release()
	return fn()
}

// Snapshot returns the stacked backends, top first.
func (s *OverrideStack) Snapshot() []*Backend {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Backend, len(s.entries))
	for i, e := range s.entries {
		out[len(s.entries)-1-i] = e.backend
	}
	return out
}

// Len returns the stack depth.
func (s *OverrideStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type overrideKey struct{}

type overrideNode struct {
	backend *Backend
	parent  *overrideNode
}

// WithOverride returns a child context in which b outranks every override
// already carried by ctx and every entry of the shared stack.
//
// Context overrides are immutable, so concurrent call paths never observe
// each other's scopes. They end when the derived context goes out of use.
func WithOverride(ctx context.Context, b *Backend) context.Context {
	if b == nil {
		panic(ErrNilBackend)
	}
	parent, _ := ctx.Value(overrideKey{}).(*overrideNode)
	return context.WithValue(ctx, overrideKey{}, &overrideNode{backend: b, parent: parent})
}

// ContextOverrides returns the backends carried by ctx, top first.
func ContextOverrides(ctx context.Context) []*Backend {
	if ctx == nil {
		return nil
	}
	var out []*Backend
	for n, _ := ctx.Value(overrideKey{}).(*overrideNode); n != nil; n = n.parent {
		out = append(out, n.backend)
	}
	return out
}
