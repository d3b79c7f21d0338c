package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

func TestLister_Defaults(t *testing.T) {
	l := New(nil)
	got, err := l.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"mock-bucket1", "mock-bucket2", "mock-bucket3"}, domain.BucketNames(got))
	require.Equal(t, domain.SourceMock, l.Kind())
}

func TestLister_ReturnsCopies(t *testing.T) {
	names := []string{"a", "b"}
	l := New(names)
	names[0] = "mutated"

	first, err := l.ListBuckets(context.Background())
	require.NoError(t, err)
	first[1].Name = "changed"

	second, err := l.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, domain.BucketNames(second))
}

func TestLister_Err(t *testing.T) {
	boom := errors.New("boom")
	l := New(nil)
	l.Err = boom
	_, err := l.ListBuckets(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestLister_DelayHonoursContext(t *testing.T) {
	l := New(nil)
	l.Delay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.ListBuckets(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
