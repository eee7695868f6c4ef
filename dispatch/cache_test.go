package dispatch_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/precodita/dispatch"
)

// TestInvokeCache_HitsAndInvalidation verifies cached selections are reused
// and invalidated by registration.
func TestInvokeCache_HitsAndInvalidation(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	c := dispatch.NewInvokeCache(fx.f, 0)

	fn, err := c.Invoke(reflect.TypeFor[T1]())
	require.NoError(t, err)
	res, _ := fn()
	assert.Equal(t, "b1", res)
	assert.Equal(t, 1, c.Len())

	_, err = c.Invoke(reflect.TypeFor[T1]())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, fx.f.Add(fx.b1, named("b1-v2")))
	fn, err = c.Invoke(reflect.TypeFor[T1]())
	require.NoError(t, err)
	res, _ = fn()
	assert.Equal(t, "b1-v2", res)

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

// TestInvokeCache_OverridesAreKeyed verifies override scopes get their own entries.
func TestInvokeCache_OverridesAreKeyed(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	c := dispatch.NewInvokeCache(fx.f, 0)
	t2 := reflect.TypeFor[T2]()

	outside, err := c.Invoke(t2)
	require.NoError(t, err)

	var inside dispatch.Func
	require.NoError(t, fx.b4.With(func() error {
		inside, err = c.Invoke(t2)
		return err
	}))

	ctxFn, err := c.InvokeContext(dispatch.WithOverride(context.Background(), fx.b3), t2)
	require.NoError(t, err)

	r1, _ := outside()
	r2, _ := inside()
	r3, _ := ctxFn()
	assert.Equal(t, "b2", r1)
	assert.Equal(t, "b4", r2)
	assert.Equal(t, "b3", r3)
}

// TestInvokeCache_ErrorsNotCached verifies failed resolutions are retried.
func TestInvokeCache_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	c := dispatch.NewInvokeCache(fx.f, time.Minute)

	_, err := c.Invoke(reflect.TypeFor[plain]())
	require.ErrorIs(t, err, dispatch.ErrNoMatchingBackend)
	assert.Equal(t, 0, c.Len())
}

// TestInvokeCache_SameNameDistinctTypes verifies types sharing a printed name
// get separate entries.
func TestInvokeCache_SameNameDistinctTypes(t *testing.T) {
	t.Parallel()

	t1, t2 := sameNamedTypes()
	env := dispatch.NewEnv()
	one := env.NewBackend("one", dispatch.Types(dispatch.Type(t1)))
	two := env.NewBackend("two", dispatch.Types(dispatch.Type(t2)))
	d, err := env.New("f", dispatch.Positions(0))
	require.NoError(t, err)
	require.NoError(t, d.Add(one, named("one")))
	require.NoError(t, d.Add(two, named("two")))

	c := dispatch.NewInvokeCache(d, 0)
	for _, tc := range []struct {
		typ  reflect.Type
		want string
	}{{t1, "one"}, {t2, "two"}, {t1, "one"}, {t2, "two"}} {
		fn, err := c.Invoke(tc.typ)
		require.NoError(t, err)
		res, _ := fn()
		assert.Equal(t, tc.want, res)
	}
	assert.Equal(t, 2, c.Len())
}
