package storage

import (
	"context"
	"time"

	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
	obsctx "github.com/fairyhunter13/bucket-trace-demo/internal/observability"
)

// MeasuredLister records every call of the wrapped lister into SourceStats
// and the storage Prometheus metrics.
type MeasuredLister struct {
	next  domain.BucketLister
	stats *obsctx.SourceStats
}

var _ domain.BucketLister = (*MeasuredLister)(nil)

// Measured decorates next so its calls are counted in stats.
func Measured(next domain.BucketLister, stats *obsctx.SourceStats) *MeasuredLister {
	return &MeasuredLister{next: next, stats: stats}
}

// ListBuckets delegates to the wrapped lister.
func (m *MeasuredLister) ListBuckets(ctx context.Context) ([]domain.Bucket, error) {
	start := time.Now()
	buckets, err := m.next.ListBuckets(ctx)
	d := time.Since(start)
	m.stats.Record(d, err)
	observability.ObserveListBuckets(string(m.next.Kind()), d, err)
	return buckets, err
}

// Kind reports the wrapped lister's source.
func (m *MeasuredLister) Kind() domain.SourceKind { return m.next.Kind() }
