// Package otelspan implements nest.SpanStarter with OpenTelemetry.
package otelspan

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/nest"
)

// Tracer starts one server span per dispatched request.
// The tracer should be created from your OpenTelemetry TracerProvider.
type Tracer struct {
	tracer trace.Tracer
}

// New returns a Tracer that creates spans with tracer.
func New(tracer trace.Tracer) *Tracer {
	return &Tracer{tracer: tracer}
}

// StartSpan starts a server span carrying attrs. The returned function ends
// it; a non-nil error marks the span failed with the error's kind and
// status code.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(err error)) {
	opts := make([]trace.SpanStartOption, 0, len(attrs)+1)
	opts = append(opts, trace.WithSpanKind(trace.SpanKindServer))
	for key, value := range attrs {
		opts = append(opts, trace.WithAttributes(attribute.String(key, value)))
	}

	spanCtx, span := t.tracer.Start(ctx, name, opts...)

	return spanCtx, func(err error) {
		defer span.End()

		if err == nil {
			span.SetStatus(codes.Ok, "")
			return
		}

		te := nest.AsTypedError(err)
		span.SetAttributes(
			attribute.String("nest.error.kind", te.Kind().String()),
			attribute.Int("http.response.status_code", nest.ErrorStatus(te)),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

var _ nest.SpanStarter = (*Tracer)(nil)
