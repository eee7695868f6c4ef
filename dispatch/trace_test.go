package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sghaida/precodita/dispatch"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return rec, tp
}

func attrs(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

// TestTracing_SpanPerCall verifies a span carries the selected backend.
func TestTracing_SpanPerCall(t *testing.T) {
	t.Parallel()

	rec, tp := newRecorder()
	env := dispatch.NewEnv()
	b := env.NewBackend("b1", dispatch.Types(dispatch.TypeOf[T1]()))
	f, err := env.FromFallback("f", dispatch.Positions(0), named("fallback"),
		dispatch.WithTracer(tp.Tracer("test")))
	require.NoError(t, err)
	require.NoError(t, f.Add(b, named("b1")))

	_, err = f.CallContext(context.Background(), T1{})
	require.NoError(t, err)
	_, err = f.Call("no match")
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	first := spans[0]
	assert.Equal(t, dispatch.SpanPrefix+"f", first.Name())
	assert.Equal(t, codes.Ok, first.Status().Code)
	a := attrs(first.Attributes())
	assert.Equal(t, "f", a[dispatch.AttrFunction].AsString())
	assert.Equal(t, "b1", a[dispatch.AttrBackend].AsString())
	assert.Equal(t, b.ID().String(), a[dispatch.AttrBackendID].AsString())
	assert.False(t, a[dispatch.AttrFallback].AsBool())

	second := attrs(spans[1].Attributes())
	assert.True(t, second[dispatch.AttrFallback].AsBool())
	_, hasBackend := second[dispatch.AttrBackend]
	assert.False(t, hasBackend)
}

// TestTracing_RecordsResolutionError verifies failed resolutions mark the span.
func TestTracing_RecordsResolutionError(t *testing.T) {
	t.Parallel()

	rec, tp := newRecorder()
	f, err := dispatch.NewEnv().New("strict", dispatch.Positions(0),
		dispatch.WithTracer(tp.Tracer("test")))
	require.NoError(t, err)

	_, err = f.Call(T1{})
	require.ErrorIs(t, err, dispatch.ErrNoMatchingBackend)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
