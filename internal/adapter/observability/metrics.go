package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	StorageListBucketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_list_buckets_total",
			Help: "Total number of list-buckets calls by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	StorageListBucketsDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_list_buckets_duration_seconds",
			Help:    "List-buckets call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"source"},
	)

	TraceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trace_requests_total",
			Help: "Total number of trace generation requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(StorageListBucketsTotal)
		prometheus.MustRegister(StorageListBucketsDuration)
		prometheus.MustRegister(TraceRequestsTotal)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveListBuckets records one list-buckets call against source.
func ObserveListBuckets(source string, dur time.Duration, err error) {
	StorageListBucketsTotal.WithLabelValues(source, outcome(err)).Inc()
	StorageListBucketsDuration.WithLabelValues(source).Observe(dur.Seconds())
}

// ObserveTraceRequest records one manual or automatic trace generation.
func ObserveTraceRequest(mode string, err error) {
	TraceRequestsTotal.WithLabelValues(mode, outcome(err)).Inc()
}
