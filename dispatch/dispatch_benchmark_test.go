package dispatch_test

import (
	"reflect"
	"testing"

	"github.com/sghaida/precodita/dispatch"
)

/*
   Shared helpers (NOT counted in benchmarks)
*/

func newBenchFunc(b *testing.B) (*dispatch.Dispatchable, *dispatch.Backend) {
	b.Helper()

	env := dispatch.NewEnv()
	b1 := env.NewBackend("b1", dispatch.Types(dispatch.TypeOf[T1]()))
	b2 := env.NewBackend("b2", dispatch.Types(dispatch.TypeOf[T2]()),
		dispatch.WithSupersedes(dispatch.TypeOf[T1]()))
	b3 := env.NewBackend("b3", dispatch.Types(arrayLike))
	b4 := env.NewBackend("b4", dispatch.Types(dispatch.TypeOf[T2]()), dispatch.OptIn())

	f, err := env.New("f", dispatch.Positions(0, 1))
	if err != nil {
		b.Fatal(err)
	}
	for _, be := range []*dispatch.Backend{b1, b2, b3, b4} {
		if err := f.Add(be, named(be.Name())); err != nil {
			b.Fatal(err)
		}
	}
	return f, b4
}

/*
   Benchmarks
*/

func BenchmarkCall_SingleMatch(b *testing.B) {
	f, _ := newBenchFunc(b)
	v := T3{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Call(v)
	}
}

func BenchmarkCall_Specificity(b *testing.B) {
	f, _ := newBenchFunc(b)
	x, y := T1{}, T2{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Call(x, y)
	}
}

func BenchmarkCall_Override(b *testing.B) {
	f, b4 := newBenchFunc(b)
	release := b4.Enable()
	defer release()
	v := T2{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Call(v)
	}
}

func BenchmarkInvoke_Uncached(b *testing.B) {
	f, _ := newBenchFunc(b)
	t2 := reflect.TypeFor[T2]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Invoke(t2)
	}
}

func BenchmarkInvoke_Cached(b *testing.B) {
	f, _ := newBenchFunc(b)
	c := dispatch.NewInvokeCache(f, 0)
	t2 := reflect.TypeFor[T2]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Invoke(t2)
	}
}
