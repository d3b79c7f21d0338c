package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/storage"
	mocklister "github.com/fairyhunter13/bucket-trace-demo/internal/adapter/storage/mock"
	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
	"github.com/fairyhunter13/bucket-trace-demo/internal/domain/mocks"
	obsctx "github.com/fairyhunter13/bucket-trace-demo/internal/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/usecase"
)

func newProvider() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func spansByName(sr *tracetest.SpanRecorder) map[string]sdktrace.ReadOnlySpan {
	out := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range sr.Ended() {
		out[s.Name()] = s
	}
	return out
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestStagesFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, usecase.Stages{First: "MockOperation1", Extract: "ProcessMockData", Second: "MockOperation2"}, usecase.StagesFor(domain.SourceMock))
	assert.Equal(t, usecase.Stages{First: "S3ListBucketsCall1", Extract: "ExtractBucketNames", Second: "S3ListBucketsCall2"}, usecase.StagesFor(domain.SourceS3))
}

func TestManual_MockSource_Tree(t *testing.T) {
	t.Parallel()
	sr, tp := newProvider()
	svc := usecase.NewTraceService(mocklister.New(nil), nil, tp.Tracer("test"))

	names, err := svc.Manual(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"mock-bucket1", "mock-bucket2", "mock-bucket3"}, names)

	require.Len(t, sr.Ended(), 4)
	spans := spansByName(sr)
	root := spans["ManualTraceHandler"]
	first := spans["MockOperation1"]
	extract := spans["ProcessMockData"]
	second := spans["MockOperation2"]
	require.NotNil(t, root)
	require.NotNil(t, first)
	require.NotNil(t, extract)
	require.NotNil(t, second)

	require.False(t, root.Parent().IsValid())
	require.Equal(t, root.SpanContext().SpanID(), first.Parent().SpanID())
	require.Equal(t, first.SpanContext().SpanID(), extract.Parent().SpanID())
	require.Equal(t, root.SpanContext().SpanID(), second.Parent().SpanID())

	ra := attrs(root)
	require.Equal(t, "Manual", ra[obsctx.AnnotationHandlerType].AsString())
	require.Equal(t, "mock-bucket1", ra[obsctx.AnnotationFirstBucketName].AsString())
	require.ElementsMatch(t, []string{obsctx.AnnotationHandlerType, obsctx.AnnotationFirstBucketName}, ra[obsctx.XRayAnnotationsKey].AsStringSlice())

	require.Equal(t, "MockOperation1", attrs(first)[obsctx.AnnotationOperation].AsString())
	require.Equal(t, "MockOperation2", attrs(second)[obsctx.AnnotationOperation].AsString())
	require.Equal(t, "mock-bucket1", attrs(extract)[obsctx.MetadataPrefix+obsctx.MetadataFirstBucketName].AsString())
}

func TestManual_S3Source_CallsTwice(t *testing.T) {
	t.Parallel()
	sr, tp := newProvider()
	l := &mocks.MockBucketLister{}
	l.On("Kind").Return(domain.SourceS3)
	l.On("ListBuckets", mock.Anything).Return([]domain.Bucket{{Name: "logs"}, {Name: "assets"}}, nil).Twice()

	names, err := usecase.NewTraceService(l, nil, tp.Tracer("test")).Manual(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"logs", "assets"}, names)
	l.AssertExpectations(t)

	spans := spansByName(sr)
	for _, n := range []string{"ManualTraceHandler", "S3ListBucketsCall1", "ExtractBucketNames", "S3ListBucketsCall2"} {
		require.Contains(t, spans, n)
	}
	require.Equal(t, "logs", attrs(spans["ManualTraceHandler"])[obsctx.AnnotationFirstBucketName].AsString())
}

func TestManual_EmptyList(t *testing.T) {
	t.Parallel()
	sr, tp := newProvider()
	l := &mocks.MockBucketLister{}
	l.On("Kind").Return(domain.SourceMock)
	l.On("ListBuckets", mock.Anything).Return(nil, nil).Once()

	names, err := usecase.NewTraceService(l, nil, tp.Tracer("test")).Manual(context.Background())
	require.NoError(t, err)
	require.NotNil(t, names)
	require.Empty(t, names)

	spans := spansByName(sr)
	_, ok := attrs(spans["ManualTraceHandler"])[obsctx.AnnotationFirstBucketName]
	require.False(t, ok)
	_, ok = attrs(spans["ProcessMockData"])[obsctx.MetadataPrefix+obsctx.MetadataFirstBucketName]
	require.False(t, ok)
}

func TestManual_ListErrorEndsEverySpan(t *testing.T) {
	t.Parallel()
	sr, tp := newProvider()
	boom := errors.New("access denied")
	l := &mocks.MockBucketLister{}
	l.On("Kind").Return(domain.SourceS3)
	l.On("ListBuckets", mock.Anything).Return(nil, boom).Once()

	names, err := usecase.NewTraceService(l, nil, tp.Tracer("test")).Manual(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "op=usecase.Manual")
	require.Nil(t, names)

	ended := sr.Ended()
	require.Len(t, ended, 2)
	for _, s := range ended {
		require.Equal(t, codes.Error, s.Status().Code, s.Name())
	}
	spans := spansByName(sr)
	require.Contains(t, spans, "S3ListBucketsCall1")
	require.Contains(t, spans, "ManualTraceHandler")
}

func TestManual_SecondCallError(t *testing.T) {
	t.Parallel()
	sr, tp := newProvider()
	boom := errors.New("throttled")
	l := &mocks.MockBucketLister{}
	l.On("Kind").Return(domain.SourceS3)
	l.On("ListBuckets", mock.Anything).Return([]domain.Bucket{{Name: "a"}}, nil).Once()
	l.On("ListBuckets", mock.Anything).Return(nil, boom).Once()

	_, err := usecase.NewTraceService(l, nil, tp.Tracer("test")).Manual(context.Background())
	require.ErrorIs(t, err, boom)

	spans := spansByName(sr)
	require.Len(t, spans, 4)
	require.Equal(t, codes.Error, spans["S3ListBucketsCall2"].Status().Code)
	require.Equal(t, codes.Error, spans["ManualTraceHandler"].Status().Code)
	require.NotEqual(t, codes.Error, spans["S3ListBucketsCall1"].Status().Code)
}

func traceRequests(mode, outcome string) float64 {
	return testutil.ToFloat64(observability.TraceRequestsTotal.WithLabelValues(mode, outcome))
}

// Not parallel: asserts deltas on the shared trace request counter.
func TestManual_PanicEndsSpans(t *testing.T) {
	sr, tp := newProvider()
	l := &mocks.MockBucketLister{}
	l.On("Kind").Return(domain.SourceMock)
	l.On("ListBuckets", mock.Anything).Run(func(mock.Arguments) { panic("lister exploded") }).Return(nil, nil)

	okBefore, errBefore := traceRequests("manual", "ok"), traceRequests("manual", "error")
	svc := usecase.NewTraceService(l, nil, tp.Tracer("test"))
	require.PanicsWithValue(t, "lister exploded", func() { _, _ = svc.Manual(context.Background()) })

	ended := sr.Ended()
	require.Len(t, ended, 2)
	for _, s := range ended {
		require.Equal(t, codes.Error, s.Status().Code)
		require.Contains(t, s.Status().Description, "lister exploded")
	}
	require.InDelta(t, 0, traceRequests("manual", "ok")-okBefore, 1e-9)
	require.InDelta(t, 1, traceRequests("manual", "error")-errBefore, 1e-9)
}

func TestAutomatic_PanicCountedAsError(t *testing.T) {
	l := &mocks.MockBucketLister{}
	l.On("ListBuckets", mock.Anything).Run(func(mock.Arguments) { panic("auto exploded") }).Return(nil, nil)
	_, tp := newProvider()

	okBefore, errBefore := traceRequests("automatic", "ok"), traceRequests("automatic", "error")
	svc := usecase.NewTraceService(l, l, tp.Tracer("test"))
	require.PanicsWithValue(t, "auto exploded", func() { _, _ = svc.Automatic(context.Background()) })

	require.InDelta(t, 0, traceRequests("automatic", "ok")-okBefore, 1e-9)
	require.InDelta(t, 1, traceRequests("automatic", "error")-errBefore, 1e-9)
}

func TestManual_MockSource_LogsBothOperations(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := obsctx.ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	_, tp := newProvider()

	_, err := usecase.NewTraceService(mocklister.New(nil), nil, tp.Tracer("test")).Manual(ctx)
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "Simulating mock operation 1")
	require.Contains(t, out, "Simulating mock operation 2")
	require.Contains(t, out, `"segment":"MockOperation1"`)
}

func TestAutomatic_AnnotatesActiveSegment(t *testing.T) {
	t.Parallel()
	sr, tp := newProvider()
	auto := storage.Traced(mocklister.New(nil), tp)
	svc := usecase.NewTraceService(mocklister.New(nil), auto, tp.Tracer("test"))

	ctx, root := tp.Tracer("middleware").Start(context.Background(), usecase.AutomaticSegmentName)
	buckets, err := svc.Automatic(ctx)
	root.End()
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	spans := spansByName(sr)
	require.Len(t, spans, 2)
	r := spans[usecase.AutomaticSegmentName]
	require.Equal(t, "Automatic", attrs(r)[obsctx.AnnotationHandlerType].AsString())
	client := spans["mock.ListBuckets"]
	require.NotNil(t, client)
	require.Equal(t, r.SpanContext().SpanID(), client.Parent().SpanID())
}

func TestAutomatic_Error(t *testing.T) {
	t.Parallel()
	_, tp := newProvider()
	failing := mocklister.New(nil)
	failing.Err = domain.ErrUpstream
	svc := usecase.NewTraceService(failing, nil, tp.Tracer("test"))

	got, err := svc.Automatic(context.Background())
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Contains(t, err.Error(), "op=usecase.Automatic")
	require.Nil(t, got)
}

func TestAutomatic_EmptyIsNonNil(t *testing.T) {
	t.Parallel()
	l := &mocks.MockBucketLister{}
	l.On("ListBuckets", mock.Anything).Return(nil, nil)
	_, tp := newProvider()

	got, err := usecase.NewTraceService(l, l, tp.Tracer("test")).Automatic(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}
