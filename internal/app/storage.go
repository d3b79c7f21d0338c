// Package app wires application components and startup helpers.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/storage"
	mocklister "github.com/fairyhunter13/bucket-trace-demo/internal/adapter/storage/mock"
	s3lister "github.com/fairyhunter13/bucket-trace-demo/internal/adapter/storage/s3"
	"github.com/fairyhunter13/bucket-trace-demo/internal/config"
	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
	obsctx "github.com/fairyhunter13/bucket-trace-demo/internal/observability"
)

// Listers holds the views of the configured bucket source: Plain emits no
// spans of its own, Auto emits a client span per call. Calls through either
// are counted in Stats and the storage metrics. Probe is the bare Plain
// lister for readiness checks, so health probes stay out of the counts.
type Listers struct {
	Plain domain.BucketLister
	Auto  domain.BucketLister
	Probe domain.BucketLister
	Stats *obsctx.SourceStats
}

func measured(plain, auto domain.BucketLister) Listers {
	stats := obsctx.NewSourceStats(plain.Kind())
	return Listers{
		Plain: storage.Measured(plain, stats),
		Auto:  storage.Measured(auto, stats),
		Probe: plain,
		Stats: stats,
	}
}

// BuildListers creates the bucket listers selected by cfg.BucketSource.
// awsCfg is only consulted for the s3 source; pass nil to load it from the
// default credential chain.
func BuildListers(ctx context.Context, cfg config.Config, tracing *observability.Tracing, awsCfg *aws.Config) (Listers, error) {
	if !cfg.UsesS3() {
		names, err := cfg.MockBucketNames()
		if err != nil {
			return Listers{}, fmt.Errorf("op=app.BuildListers: %w", err)
		}
		plain := mocklister.New(names)
		slog.Info("bucket source: mock", slog.Int("buckets", len(names)))
		return measured(plain, storage.Traced(plain, tracing.Provider)), nil
	}

	var base aws.Config
	if awsCfg != nil {
		base = *awsCfg
	} else {
		loaded, err := s3lister.LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return Listers{}, fmt.Errorf("op=app.BuildListers: %w", err)
		}
		base = loaded
	}
	opts := s3lister.Options{Endpoint: cfg.S3Endpoint, UsePathStyle: cfg.S3UsePathStyle}
	slog.Info("bucket source: s3", slog.String("region", base.Region), slog.String("endpoint", cfg.S3Endpoint))
	return measured(
		s3lister.NewFromConfig(base, opts),
		s3lister.NewFromConfig(s3lister.Instrumented(base, tracing.Provider, tracing.Propagator), opts),
	), nil
}
