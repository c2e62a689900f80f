package httpmiddleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RouteFunc returns the matched route pattern of a served request, or "".
type RouteFunc func(*http.Request) string

// Instrument returns a middleware that traces requests and records HTTP
// server metrics. When route is set and reports a pattern after the request
// is served, the span is renamed to "METHOD pattern" and metrics get an
// http.route attribute.
func Instrument(operation string, route RouteFunc, tp trace.TracerProvider, mp metric.MeterProvider) Middleware {
	return func(next http.Handler) http.Handler {
		labeled := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if route == nil {
				return
			}
			pattern := route(r)
			if pattern == "" {
				return
			}
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + pattern)
			if labeler, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				labeler.Add(attribute.String("http.route", pattern))
			}
		})
		return otelhttp.NewHandler(labeled, operation,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		)
	}
}
