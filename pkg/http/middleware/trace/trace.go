package trace

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// NewTraceMiddleware starts a server span per request. The span is renamed to the matched
// chi route once the handler returns, so ids in the path do not blow up span names.
func NewTraceMiddleware(serviceName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracer := otel.Tracer(serviceName)

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPMethodKey.String(r.Method),
					semconv.HTTPTargetKey.String(r.URL.Path),
					semconv.HTTPURLKey.String(r.URL.String()),
					semconv.HTTPSchemeKey.String(r.URL.Scheme),
					semconv.NetHostNameKey.String(r.Host),
				),
			)
			defer span.End()

			next.ServeHTTP(w, r.WithContext(ctx))

			if rctx := chi.RouteContext(ctx); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					span.SetName(r.Method + " " + pattern)
					span.SetAttributes(semconv.HTTPRouteKey.String(pattern))
				}
			}
		})
	}
}
