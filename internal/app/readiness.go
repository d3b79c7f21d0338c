package app

import (
	"context"
	"fmt"
	"net"

	"github.com/fairyhunter13/bucket-trace-demo/internal/config"
	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

// BuildReadinessChecks returns the storage and tracing readiness checks.
// The storage check performs a real list call against lister; the tracing
// check dials the collector and passes trivially when export is disabled.
func BuildReadinessChecks(cfg config.Config, lister domain.BucketLister) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	storageCheck := func(ctx context.Context) error {
		if lister == nil {
			return fmt.Errorf("bucket source not configured")
		}
		if _, err := lister.ListBuckets(ctx); err != nil {
			return fmt.Errorf("%s: %w", lister.Kind(), err)
		}
		return nil
	}
	tracingCheck := func(ctx context.Context) error {
		if !cfg.TracingEnabled() {
			return nil
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("collector %s: %w", cfg.OTLPEndpoint, err)
		}
		_ = conn.Close()
		return nil
	}
	return storageCheck, tracingCheck
}
