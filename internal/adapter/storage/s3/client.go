// Package s3 lists buckets through the AWS SDK v2 S3 client.
package s3

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

// API is the part of *s3.Client the lister needs.
type API interface {
	ListBuckets(ctx context.Context, params *awss3.ListBucketsInput, optFns ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error)
}

// Options tune the S3 client for non-AWS endpoints such as LocalStack or MinIO.
type Options struct {
	Endpoint     string
	UsePathStyle bool
}

// Lister implements domain.BucketLister on top of S3.
type Lister struct {
	api API
}

var _ domain.BucketLister = (*Lister)(nil)

// LoadAWSConfig resolves credentials through the default chain with region pinned.
func LoadAWSConfig(ctx context.Context, region string, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
	optFns = append([]func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}, optFns...)
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("op=s3.LoadAWSConfig: %w", err)
	}
	return cfg, nil
}

// Instrumented returns a copy of cfg whose clients emit a span for every AWS
// call, with trace context propagated on the outgoing request. cfg itself is
// left untouched so plain and patched clients can share one base config.
func Instrumented(cfg aws.Config, tp trace.TracerProvider, prop propagation.TextMapPropagator) aws.Config {
	patched := cfg
	patched.APIOptions = slices.Clone(cfg.APIOptions)
	otelaws.AppendMiddlewares(&patched.APIOptions,
		otelaws.WithTracerProvider(tp),
		otelaws.WithTextMapPropagator(prop),
	)
	return patched
}

// NewFromConfig builds a Lister with an S3 client created from cfg.
func NewFromConfig(cfg aws.Config, opts Options) *Lister {
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return New(client)
}

// New wraps an existing client.
func New(api API) *Lister { return &Lister{api: api} }

// ListBuckets returns every bucket the credentials can see. Entries without
// a name are skipped.
func (l *Lister) ListBuckets(ctx context.Context) ([]domain.Bucket, error) {
	out, err := l.api.ListBuckets(ctx, &awss3.ListBucketsInput{})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("op=s3.ListBuckets: %w: %w", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("op=s3.ListBuckets: %w: %w", domain.ErrUpstream, err)
	}
	buckets := make([]domain.Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if b.Name == nil {
			continue
		}
		bk := domain.Bucket{Name: *b.Name}
		if b.CreationDate != nil {
			bk.CreationDate = b.CreationDate.UTC()
		}
		buckets = append(buckets, bk)
	}
	return buckets, nil
}

// Kind reports SourceS3.
func (l *Lister) Kind() domain.SourceKind { return domain.SourceS3 }
