package app

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/bucket-trace-demo/internal/adapter/httpserver"
	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/config"
	"github.com/fairyhunter13/bucket-trace-demo/internal/usecase"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID(logger))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Every hit on a trace route calls the bucket source.
	r.Group(func(tr chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			tr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		}
		tr.Get("/generate-manual-traces", srv.ManualTracesHandler())
		tr.With(httpserver.SegmentMiddleware(usecase.AutomaticSegmentName, srv.Tracing.Provider, srv.Tracing.Propagator)).
			Get("/generate-automatic-traces", srv.AutomaticTracesHandler())
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", srv.OpenAPIServe())

	return httpserver.SecurityHeaders(r)
}
