package httpserver

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	obsctx "github.com/fairyhunter13/bucket-trace-demo/internal/observability"
)

const traceIDHeader = "X-Trace-Id"

// SegmentMiddleware opens a server span named name around every request,
// continuing any trace carried in the request headers. Handlers below it
// annotate the span through obsctx.AnnotateCurrent; annotations are flushed
// before otelhttp ends the span.
func SegmentMiddleware(name string, tp trace.TracerProvider, prop propagation.TextMapPropagator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, seg := obsctx.Adopt(r.Context(), name)
			defer seg.End(nil)
			if sc := seg.SpanContext(); sc.IsValid() {
				w.Header().Set(traceIDHeader, sc.TraceID().String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return otelhttp.NewHandler(inner, name,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(prop),
		)
	}
}
