// Package observability provides logging, metrics, and tracing.
//
// It wires OpenTelemetry with X-Ray compatible trace ids and propagation so
// segments can be forwarded to X-Ray by a local collector.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/bucket-trace-demo/internal/config"
)

// TracingConfig is the process-wide tracing configuration. It is built once
// at startup and passed to SetupTracing; nothing reads tracing settings from
// globals.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP/gRPC collector address. Empty disables export.
	Endpoint      string
	SamplingRatio float64
	Insecure      bool
}

// TracingConfigFrom derives the tracing configuration from the app config.
func TracingConfigFrom(cfg config.Config) TracingConfig {
	tc := TracingConfig{
		ServiceName:    cfg.OTELServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.AppEnv,
		SamplingRatio:  cfg.TraceSamplingRatio,
		Insecure:       true,
	}
	if cfg.TracingEnabled() {
		tc.Endpoint = cfg.OTLPEndpoint
	}
	return tc
}

// Tracing holds the provider and propagator injected into handlers,
// middleware and instrumented clients.
type Tracing struct {
	Provider   trace.TracerProvider
	Propagator propagation.TextMapPropagator
	shutdown   func(context.Context) error
}

// Tracer returns a named tracer from the provider.
func (t *Tracing) Tracer(name string) trace.Tracer { return t.Provider.Tracer(name) }

// Shutdown flushes pending spans and stops the exporter.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// NewPropagator returns the propagator used for inbound and outbound calls:
// X-Amzn-Trace-Id first, W3C traceparent as fallback.
func NewPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(xray.Propagator{}, propagation.TraceContext{})
}

// SetupTracing builds a tracer provider from tc. When tc.Endpoint is empty
// spans are still created (ids show up in logs) but never exported.
func SetupTracing(ctx context.Context, tc TracingConfig) (*Tracing, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(tc.ServiceName),
		semconv.ServiceVersionKey.String(tc.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(tc.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("op=observability.SetupTracing: resource: %w", err)
	}

	ratio := tc.SamplingRatio
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("op=observability.SetupTracing: sampling ratio %v out of [0,1]", ratio)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithIDGenerator(xray.NewIDGenerator()),
	}

	if tc.Endpoint == "" {
		slog.Info("OTLP endpoint not set; spans will not be exported")
	} else {
		expOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(tc.Endpoint)}
		if tc.Insecure {
			expOpts = append(expOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("op=observability.SetupTracing: exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		slog.Info("tracing configured",
			slog.String("endpoint", tc.Endpoint),
			slog.Float64("sampling_ratio", ratio))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	return &Tracing{Provider: tp, Propagator: NewPropagator(), shutdown: tp.Shutdown}, nil
}
