package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

const traceIDHeader = "X-Trace-Id"

// Tracing opens a server span per request, continuing a caller's trace when one
// arrives in the headers. The span is renamed to the route once chi has matched it.
func Tracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracing.Start(ctx, "http "+r.Method,
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path))
			defer span.End()

			if id := RequestIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}
			if sc := span.SpanContext(); sc.HasTraceID() {
				w.Header().Set(traceIDHeader, sc.TraceID().String())
			}
			ww := wrap(w, r)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			status := defaultStatus(ww.Status())
			span.SetName(r.Method + " " + routeOf(r))
			span.SetAttributes(
				attribute.String("http.route", routeOf(r)),
				attribute.Int("http.status_code", status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}
