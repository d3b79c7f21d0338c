package httpserver

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/config"
	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
	obsctx "github.com/fairyhunter13/bucket-trace-demo/internal/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/usecase"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Server aggregates handlers dependencies.
type Server struct {
	Cfg          config.Config
	Traces       usecase.TraceService
	Tracing      *observability.Tracing
	StorageCheck func(ctx context.Context) error
	TracingCheck func(ctx context.Context) error
	// Stats, when set, is reported by /readyz next to the checks.
	Stats *obsctx.SourceStats
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, traces usecase.TraceService, tracing *observability.Tracing, storageCheck, tracingCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Traces: traces, Tracing: tracing, StorageCheck: storageCheck, TracingCheck: tracingCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// Bucket list renderings accepted in ?view=.
const (
	ViewNames    = "names"
	ViewDetailed = "detailed"
)

type listQuery struct {
	View string `validate:"omitempty,oneof=names detailed"`
}

// BucketView is one element of the detailed rendering.
type BucketView struct {
	Name         string `json:"name"`
	CreationDate string `json:"creation_date,omitempty"`
}

// ManualTracesHandler lists buckets under a segment tree opened by the usecase
// and responds with the bucket names.
func (s *Server) ManualTracesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := s.Traces.Manual(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, names)
	}
}

// AutomaticTracesHandler lists buckets under the segment opened by
// SegmentMiddleware. With ?view=detailed each entry carries its creation date.
func (s *Server) AutomaticTracesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := listQuery{View: r.URL.Query().Get("view")}
		if err := getValidator().Struct(q); err != nil {
			writeError(w, r, fmt.Errorf("%w: view must be %q or %q", domain.ErrInvalidArgument, ViewNames, ViewDetailed), map[string]string{"field": "view"})
			return
		}
		buckets, err := s.Traces.Automatic(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if q.View == ViewDetailed {
			writeJSON(w, http.StatusOK, detailed(buckets))
			return
		}
		writeJSON(w, http.StatusOK, domain.BucketNames(buckets))
	}
}

func detailed(buckets []domain.Bucket) []BucketView {
	out := make([]BucketView, 0, len(buckets))
	for _, b := range buckets {
		v := BucketView{Name: b.Name}
		if !b.CreationDate.IsZero() {
			v.CreationDate = b.CreationDate.UTC().Format(time.RFC3339)
		}
		out = append(out, v)
	}
	return out
}

// HealthzHandler reports liveness only.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes the bucket source and the trace collector.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"storage", s.StorageCheck},
			{"tracing", s.TracingCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				ok = false
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		body := map[string]any{"checks": checks}
		if s.Stats != nil {
			body["storage_stats"] = s.Stats.Snapshot()
		}
		writeJSON(w, st, body)
	}
}

// OpenAPIServe serves the embedded API description.
func (s *Server) OpenAPIServe() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(openAPISpec)
	}
}
