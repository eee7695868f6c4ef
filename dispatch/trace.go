package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span naming and attribute keys used by CallContext when a tracer is set.
const (
	SpanPrefix = "dispatch."

	AttrFunction  = "dispatch.function"
	AttrBackend   = "dispatch.backend"
	AttrBackendID = "dispatch.backend_id"
	AttrFallback  = "dispatch.fallback"
)

func (d *Dispatchable) startSpan(ctx context.Context) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d.tracer == nil {
		return ctx, nil
	}
	ctx, span := d.tracer.Start(ctx, SpanPrefix+d.name,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(attribute.String(AttrFunction, d.name))
	return ctx, span
}

func annotateSpan(span trace.Span, sel Selection) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Bool(AttrFallback, sel.Fallback))
	if sel.Backend != nil {
		span.SetAttributes(
			attribute.String(AttrBackend, sel.Backend.name),
			attribute.String(AttrBackendID, sel.Backend.id.String()),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
