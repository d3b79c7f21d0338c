// Package mock serves a fixed bucket list in place of a storage service.
package mock

import (
	"context"
	"time"

	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

// Make sure *Lister satisfies the BucketLister port.
var _ domain.BucketLister = (*Lister)(nil)

// DefaultBuckets is the list served when no names are configured.
var DefaultBuckets = []string{"mock-bucket1", "mock-bucket2", "mock-bucket3"}

// Lister returns the same bucket names on every call.
type Lister struct {
	names []string

	// Delay mimics network latency before the list is returned.
	Delay time.Duration
	// Err, when set, is returned by every call instead of the list.
	Err error
}

// New creates a Lister serving names, or DefaultBuckets when names is empty.
func New(names []string) *Lister {
	if len(names) == 0 {
		names = DefaultBuckets
	}
	return &Lister{names: append([]string(nil), names...)}
}

// ListBuckets returns a fresh copy of the configured buckets.
func (l *Lister) ListBuckets(ctx context.Context) ([]domain.Bucket, error) {
	if l.Delay > 0 {
		t := time.NewTimer(l.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if l.Err != nil {
		return nil, l.Err
	}
	buckets := make([]domain.Bucket, 0, len(l.names))
	for _, n := range l.names {
		buckets = append(buckets, domain.Bucket{Name: n})
	}
	return buckets, nil
}

// Kind reports SourceMock.
func (l *Lister) Kind() domain.SourceKind { return domain.SourceMock }
