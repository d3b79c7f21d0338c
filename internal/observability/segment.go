package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Annotation and metadata keys written by the trace handlers.
const (
	AnnotationHandlerType     = "HandlerType"
	AnnotationOperation       = "Operation"
	AnnotationFirstBucketName = "first_bucket_name"
	MetadataFirstBucketName   = "firstBucketName"
)

const (
	// XRayAnnotationsKey lists the attribute keys an X-Ray exporter indexes as annotations.
	XRayAnnotationsKey = "aws.xray.annotations"
	// MetadataPrefix namespaces non-indexed metadata attributes.
	MetadataPrefix = "metadata."
)

// Scope is a handle on an open segment or subsegment. The span is ended
// exactly once, by the first call to End.
type Scope struct {
	span   trace.Span
	name   string
	owned  bool
	logger *slog.Logger

	mu          sync.Mutex
	annotations []string

	ended atomic.Bool
}

type scopeContextKey struct{}

// Begin opens a span named name as a child of the span in ctx, or as a local
// root when ctx carries none. The caller must call End on every exit path;
// prefer Capture where a closure fits.
func Begin(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, *Scope) {
	ctx, span := tracer.Start(ctx, name, opts...)
	s := &Scope{span: span, name: name, owned: true}
	s.logger = TraceLogger(ctx).With(slog.String("segment", name))
	return context.WithValue(ctx, scopeContextKey{}, s), s
}

// Adopt wraps the span already active in ctx, typically one opened by
// middleware, so annotations on it go through the same Scope API. End on an
// adopted Scope flushes annotations but leaves ending the span to its owner.
func Adopt(ctx context.Context, name string) (context.Context, *Scope) {
	span := trace.SpanFromContext(ctx)
	s := &Scope{span: span, name: name}
	s.logger = TraceLogger(ctx).With(slog.String("segment", name))
	return context.WithValue(ctx, scopeContextKey{}, s), s
}

// ScopeFromContext returns the Scope for the span active in ctx, or nil.
func ScopeFromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	if !ok || s == nil {
		return nil
	}
	// a span started underneath without Begin shadows the stored scope
	if !s.span.SpanContext().Equal(trace.SpanContextFromContext(ctx)) {
		return nil
	}
	return s
}

// Capture runs fn inside a new span and ends the span whichever way fn
// leaves: normal return, error return, or panic. Errors and panics are
// recorded on the span; panics are re-raised after the span is closed.
func Capture(ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context, *Scope) error) error {
	_, err := CaptureResult(ctx, tracer, name, func(ctx context.Context, s *Scope) (struct{}, error) {
		return struct{}{}, fn(ctx, s)
	})
	return err
}

// CaptureResult is Capture for functions that produce a value.
func CaptureResult[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context, *Scope) (T, error)) (result T, err error) {
	ctx, s := Begin(ctx, tracer, name)
	defer func() {
		if rec := recover(); rec != nil {
			s.endPanic(rec)
			panic(rec)
		}
		s.End(err)
	}()
	return fn(ctx, s)
}

// Name returns the segment name.
func (s *Scope) Name() string { return s.name }

// SpanContext returns the identity of the underlying span.
func (s *Scope) SpanContext() trace.SpanContext { return s.span.SpanContext() }

// Logger returns a logger carrying the request fields plus trace_id, span_id
// and segment.
func (s *Scope) Logger() *slog.Logger { return s.logger }

// Ended reports whether End has been called.
func (s *Scope) Ended() bool { return s.ended.Load() }

// Annotate records an indexed key/value pair. Strings, bools, ints and floats
// keep their type; anything else is formatted with fmt.Sprint.
func (s *Scope) Annotate(key string, value any) {
	if s.ended.Load() {
		s.logger.Warn("annotation on closed segment dropped", slog.String("key", key))
		return
	}
	s.span.SetAttributes(annotationAttr(key, value))
	s.mu.Lock()
	for _, k := range s.annotations {
		if k == key {
			s.mu.Unlock()
			return
		}
	}
	s.annotations = append(s.annotations, key)
	s.mu.Unlock()
}

// AddMetadata records a non-indexed key/value pair. Non-string values are JSON encoded.
func (s *Scope) AddMetadata(key string, value any) {
	if s.ended.Load() {
		return
	}
	var v string
	switch tv := value.(type) {
	case string:
		v = tv
	case *string:
		if tv != nil {
			v = *tv
		}
	default:
		b, err := json.Marshal(value)
		if err != nil {
			v = fmt.Sprint(value)
		} else {
			v = string(b)
		}
	}
	s.span.SetAttributes(attribute.String(MetadataPrefix+key, v))
}

// AddError records err on the span and marks it failed. It reports whether
// err was non-nil so callers can write `if s.AddError(err) { return err }`.
func (s *Scope) AddError(err error) bool {
	if err == nil {
		return false
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	return true
}

// End closes the segment, recording err when non-nil. Only the first call
// has any effect.
func (s *Scope) End(err error) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.AddError(err)
	s.flushAnnotations()
	if s.owned {
		s.span.End()
	}
}

func (s *Scope) endPanic(rec any) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	err := fmt.Errorf("panic: %v", rec)
	s.span.RecordError(err, trace.WithStackTrace(true))
	s.span.SetStatus(codes.Error, err.Error())
	s.flushAnnotations()
	if s.owned {
		s.span.End()
	}
}

func (s *Scope) flushAnnotations() {
	s.mu.Lock()
	keys := append([]string(nil), s.annotations...)
	s.mu.Unlock()
	if len(keys) > 0 {
		s.span.SetAttributes(attribute.StringSlice(XRayAnnotationsKey, keys))
	}
}

// AnnotateCurrent annotates the segment active in ctx. When ctx carries no
// trace context the annotation is dropped and an error logged.
func AnnotateCurrent(ctx context.Context, key string, value any) {
	if s := ScopeFromContext(ctx); s != nil {
		s.Annotate(key, value)
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		LoggerFromContext(ctx).Error("trace context missing; annotation dropped", slog.String("key", key))
		return
	}
	span.SetAttributes(annotationAttr(key, value), attribute.StringSlice(XRayAnnotationsKey, mergeAnnotationKeys(span, key)))
}

// attributeReader is implemented by SDK spans that expose their attributes.
type attributeReader interface {
	Attributes() []attribute.KeyValue
}

// mergeAnnotationKeys returns the annotation keys already listed on span plus key.
func mergeAnnotationKeys(span trace.Span, key string) []string {
	var keys []string
	if r, ok := span.(attributeReader); ok {
		for _, kv := range r.Attributes() {
			if kv.Key == XRayAnnotationsKey {
				keys = append(keys, kv.Value.AsStringSlice()...)
			}
		}
	}
	if slices.Contains(keys, key) {
		return keys
	}
	return append(keys, key)
}

func annotationAttr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
