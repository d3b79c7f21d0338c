// Package usecase contains application business logic services.
package usecase

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
	obsctx "github.com/fairyhunter13/bucket-trace-demo/internal/observability"
)

// Root segment names and handler types.
const (
	ManualSegmentName    = "ManualTraceHandler"
	AutomaticSegmentName = "AutomaticTraceHandler"

	HandlerManual    = "Manual"
	HandlerAutomatic = "Automatic"
)

// Stages names the subsegments of a manual trace.
type Stages struct {
	First   string
	Extract string
	Second  string
}

// StagesFor returns the subsegment names used for a bucket source.
func StagesFor(kind domain.SourceKind) Stages {
	if kind == domain.SourceS3 {
		return Stages{First: "S3ListBucketsCall1", Extract: "ExtractBucketNames", Second: "S3ListBucketsCall2"}
	}
	return Stages{First: "MockOperation1", Extract: "ProcessMockData", Second: "MockOperation2"}
}

// TraceService lists buckets while producing trace segments. Manual opens
// every segment itself through Lister; Automatic relies on the segment
// already open in ctx and on AutoLister emitting its own client spans.
type TraceService struct {
	Lister     domain.BucketLister
	AutoLister domain.BucketLister
	Tracer     trace.Tracer
}

// NewTraceService constructs a TraceService. A nil auto lister falls back to lister.
func NewTraceService(lister, auto domain.BucketLister, tracer trace.Tracer) TraceService {
	if auto == nil {
		auto = lister
	}
	return TraceService{Lister: lister, AutoLister: auto, Tracer: tracer}
}

// Manual builds the tree
//
//	ManualTraceHandler
//	├── stage 1 (list buckets)
//	│   └── extract (bucket names)
//	└── stage 2
//
// and returns the bucket names. The returned slice is never nil.
func (s TraceService) Manual(ctx domain.Context) (names []string, err error) {
	defer observeTrace("manual", &err)

	kind := s.Lister.Kind()
	stages := StagesFor(kind)

	return obsctx.CaptureResult(ctx, s.Tracer, ManualSegmentName, func(ctx domain.Context, root *obsctx.Scope) ([]string, error) {
		root.Annotate(obsctx.AnnotationHandlerType, HandlerManual)

		names := []string{}
		err := obsctx.Capture(ctx, s.Tracer, stages.First, func(ctx domain.Context, st *obsctx.Scope) error {
			st.Annotate(obsctx.AnnotationOperation, stages.First)
			if kind != domain.SourceS3 {
				st.Logger().Info("Simulating mock operation 1")
			}
			buckets, err := s.Lister.ListBuckets(ctx)
			if err != nil {
				return fmt.Errorf("op=usecase.Manual: %s: %w", stages.First, err)
			}
			return obsctx.Capture(ctx, s.Tracer, stages.Extract, func(_ domain.Context, ex *obsctx.Scope) error {
				names = domain.BucketNames(buckets)
				if len(names) > 0 {
					root.Annotate(obsctx.AnnotationFirstBucketName, names[0])
					ex.AddMetadata(obsctx.MetadataFirstBucketName, names[0])
				}
				return nil
			})
		})
		if err != nil {
			return nil, err
		}

		err = obsctx.Capture(ctx, s.Tracer, stages.Second, func(ctx domain.Context, st *obsctx.Scope) error {
			st.Annotate(obsctx.AnnotationOperation, stages.Second)
			if kind != domain.SourceS3 {
				st.Logger().Info("Simulating mock operation 2")
				return nil
			}
			if _, err := s.Lister.ListBuckets(ctx); err != nil {
				return fmt.Errorf("op=usecase.Manual: %s: %w", stages.Second, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		root.Logger().Debug("manual trace complete", "bucket_count", len(names))
		return names, nil
	})
}

// Automatic annotates the segment active in ctx and lists buckets through
// the instrumented lister. It opens no spans of its own. The returned slice
// is never nil.
func (s TraceService) Automatic(ctx domain.Context) (buckets []domain.Bucket, err error) {
	defer observeTrace("automatic", &err)

	obsctx.AnnotateCurrent(ctx, obsctx.AnnotationHandlerType, HandlerAutomatic)
	buckets, err = s.AutoLister.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("op=usecase.Automatic: %w", err)
	}
	if buckets == nil {
		buckets = []domain.Bucket{}
	}
	return buckets, nil
}

// observeTrace counts a finished trace request. A panic is counted as an
// error and re-raised.
func observeTrace(mode string, err *error) {
	if rec := recover(); rec != nil {
		observability.ObserveTraceRequest(mode, fmt.Errorf("panic: %v", rec))
		panic(rec)
	}
	observability.ObserveTraceRequest(mode, *err)
}
