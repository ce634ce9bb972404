package otelspan_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/nest"
	"github.com/bjaus/nest/otelspan"
)

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path       string
		wantName   string
		wantStatus codes.Code
		wantKind   string
		wantCode   int64
	}{
		"ok": {
			path:       "/users/1",
			wantName:   "GET /users/1",
			wantStatus: codes.Ok,
		},
		"validation failure": {
			path:       "/users/abc",
			wantName:   "GET /users/abc",
			wantStatus: codes.Error,
			wantKind:   "validation",
			wantCode:   http.StatusBadRequest,
		},
		"not found": {
			path:       "/nope",
			wantName:   "GET /nope",
			wantStatus: codes.Error,
			wantKind:   "routing",
			wantCode:   http.StatusNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exporter := tracetest.NewInMemoryExporter()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
			t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

			var inHandler trace.SpanContext
			api := nest.New(nest.WithTracer(otelspan.New(provider.Tracer("nest"))))
			api.Get("users/:id", func(c *nest.Context) (any, error) {
				inHandler = trace.SpanContextFromContext(c.Context())
				return "ok", nil
			}, nest.WithParams(nest.NewSchema().Req("id", nest.Integer())))
			app, err := api.Build()
			require.NoError(t, err)

			app.Dispatch(t.Context(), &nest.Request{Path: tt.path})

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			span := spans[0]

			assert.Equal(t, tt.wantName, span.Name)
			assert.Equal(t, trace.SpanKindServer, span.SpanKind)
			assert.Equal(t, tt.wantStatus, span.Status.Code)

			method, ok := attrValue(span.Attributes, "http.request.method")
			require.True(t, ok)
			assert.Equal(t, "GET", method.AsString())

			if tt.wantStatus == codes.Ok {
				assert.Equal(t, span.SpanContext.SpanID(), inHandler.SpanID(), "handlers run inside the span")
				assert.Empty(t, span.Events)
				return
			}

			kind, ok := attrValue(span.Attributes, "nest.error.kind")
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind.AsString())
			code, ok := attrValue(span.Attributes, "http.response.status_code")
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, code.AsInt64())
			require.Len(t, span.Events, 1)
			assert.Equal(t, "exception", span.Events[0].Name)
		})
	}
}
