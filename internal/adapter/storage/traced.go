// Package storage holds the BucketLister adapters and the client-side
// tracing decorator used when a lister has no library instrumentation of
// its own.
package storage

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

// TracedLister wraps a BucketLister so each call emits a client span, the
// same shape an instrumented SDK client produces. Callers see no difference.
type TracedLister struct {
	next   domain.BucketLister
	tracer trace.Tracer
}

var _ domain.BucketLister = (*TracedLister)(nil)

// Traced decorates next with a client span per call.
func Traced(next domain.BucketLister, tp trace.TracerProvider) *TracedLister {
	return &TracedLister{next: next, tracer: tp.Tracer("storage.lister")}
}

// SpanName is the name of the span emitted for a list call against kind.
func SpanName(kind domain.SourceKind) string {
	switch kind {
	case domain.SourceS3:
		return "S3.ListBuckets"
	default:
		return fmt.Sprintf("%s.ListBuckets", kind)
	}
}

// ListBuckets calls the wrapped lister inside a client span.
func (t *TracedLister) ListBuckets(ctx context.Context) ([]domain.Bucket, error) {
	ctx, span := t.tracer.Start(ctx, SpanName(t.next.Kind()), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("storage.source", string(t.next.Kind())),
		attribute.String("rpc.method", "ListBuckets"),
	)
	buckets, err := t.next.ListBuckets(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("storage.bucket_count", len(buckets)))
	return buckets, nil
}

// Kind reports the wrapped lister's source.
func (t *TracedLister) Kind() domain.SourceKind { return t.next.Kind() }
