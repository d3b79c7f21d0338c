package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

func TestNewSourceStatsDefaults(t *testing.T) {
	s := NewSourceStats(domain.SourceMock)
	snap := s.Snapshot()
	if snap.Source != "mock" {
		t.Fatalf("Source = %q, want mock", snap.Source)
	}
	if snap.Total != 0 || snap.Failure != 0 {
		t.Fatalf("expected zero counters, got %+v", snap)
	}
	if !snap.Healthy {
		t.Fatal("fresh stats should be healthy")
	}
	if snap.LastCall != "" || snap.LastSuccess != "" || snap.LastFailure != "" {
		t.Fatal("no timestamps expected before any call")
	}
}

func TestSourceStats_RecordSuccessLatency(t *testing.T) {
	s := NewSourceStats(domain.SourceS3)
	s.Record(10*time.Millisecond, nil)
	s.Record(30*time.Millisecond, nil)

	snap := s.Snapshot()
	if snap.Total != 2 || snap.Success != 2 {
		t.Fatalf("counters = %+v", snap)
	}
	if snap.MinLatency != (10 * time.Millisecond).String() {
		t.Fatalf("MinLatency = %s", snap.MinLatency)
	}
	if snap.MaxLatency != (30 * time.Millisecond).String() {
		t.Fatalf("MaxLatency = %s", snap.MaxLatency)
	}
	if snap.AvgLatency != (20 * time.Millisecond).String() {
		t.Fatalf("AvgLatency = %s", snap.AvgLatency)
	}
	if snap.LastSuccess == "" || snap.LastCall == "" {
		t.Fatalf("timestamps not set: %+v", snap)
	}
}

func TestSourceStats_ErrorClasses(t *testing.T) {
	s := NewSourceStats(domain.SourceS3)
	s.Record(time.Millisecond, fmt.Errorf("op=s3.ListBuckets: %w", context.DeadlineExceeded))
	s.Record(time.Millisecond, fmt.Errorf("op=s3.ListBuckets: %w", domain.ErrUpstream))
	s.Record(time.Millisecond, errors.New("boom"))

	snap := s.Snapshot()
	if snap.Failure != 3 || snap.Timeouts != 1 {
		t.Fatalf("counters = %+v", snap)
	}
	for _, class := range []string{ErrorClassTimeout, ErrorClassUpstream, ErrorClassOther} {
		if snap.ErrorCounts[class] != 1 {
			t.Fatalf("ErrorCounts[%s] = %d, want 1", class, snap.ErrorCounts[class])
		}
	}
	if snap.Healthy {
		t.Fatal("all calls failed recently; expected unhealthy")
	}
}

func TestSourceStats_HealthyWhenMostlySucceeding(t *testing.T) {
	s := NewSourceStats(domain.SourceMock)
	s.Record(time.Millisecond, nil)
	s.Record(time.Millisecond, nil)
	s.Record(time.Millisecond, errors.New("flaky"))
	if !s.Snapshot().Healthy {
		t.Fatal("1 of 3 failures should still be healthy")
	}
}

func TestSourceStats_SnapshotIsCopy(t *testing.T) {
	s := NewSourceStats(domain.SourceMock)
	s.Record(time.Millisecond, errors.New("x"))
	snap := s.Snapshot()
	snap.ErrorCounts[ErrorClassOther] = 99
	if s.Snapshot().ErrorCounts[ErrorClassOther] != 1 {
		t.Fatal("snapshot must not alias internal map")
	}
}
