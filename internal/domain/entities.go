package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream error")
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// SourceKind identifies where a BucketLister gets its data.
type SourceKind string

const (
	SourceMock SourceKind = "mock"
	SourceS3   SourceKind = "s3"
)

// Bucket is a storage bucket as reported by the list-buckets call.
// CreationDate is zero for mock buckets.
type Bucket struct {
	Name         string
	CreationDate time.Time
}

// BucketLister (port) lists the buckets visible to the configured credentials.
type BucketLister interface {
	ListBuckets(ctx Context) ([]Bucket, error)
	Kind() SourceKind
}

// BucketNames extracts the names of buckets in order. The result is never nil
// so it always encodes as a JSON array.
func BucketNames(buckets []Bucket) []string {
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names
}

// Context is an alias so ports can be declared without importing context in every adapter.
type Context = context.Context
