// Package mocks holds testify mocks for the domain ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

// MockBucketLister is a testify mock of domain.BucketLister.
type MockBucketLister struct {
	mock.Mock
}

var _ domain.BucketLister = (*MockBucketLister)(nil)

// ListBuckets provides a mock function with given fields: ctx
func (m *MockBucketLister) ListBuckets(ctx context.Context) ([]domain.Bucket, error) {
	ret := m.Called(ctx)

	var r0 []domain.Bucket
	if rf, ok := ret.Get(0).(func(context.Context) []domain.Bucket); ok {
		r0 = rf(ctx)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Bucket)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// Kind provides a mock function with no fields
func (m *MockBucketLister) Kind() domain.SourceKind {
	ret := m.Called()
	if rf, ok := ret.Get(0).(func() domain.SourceKind); ok {
		return rf()
	}
	return ret.Get(0).(domain.SourceKind)
}
