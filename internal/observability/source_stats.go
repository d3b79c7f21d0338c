package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fairyhunter13/bucket-trace-demo/internal/domain"
)

// Error classes counted by SourceStats.
const (
	ErrorClassTimeout  = "timeout"
	ErrorClassUpstream = "upstream"
	ErrorClassOther    = "other"
)

// SourceStats tracks in-process call statistics for one bucket source.
// Prometheus carries the same counts; these are kept for /readyz.
type SourceStats struct {
	mu sync.RWMutex

	source domain.SourceKind

	total    int64
	success  int64
	failure  int64
	timeouts int64

	totalLatency time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration

	errorCounts map[string]int64

	lastCall    time.Time
	lastSuccess time.Time
	lastFailure time.Time
}

// StatsSnapshot is a point-in-time copy of SourceStats.
type StatsSnapshot struct {
	Source      string           `json:"source"`
	Total       int64            `json:"total"`
	Success     int64            `json:"success"`
	Failure     int64            `json:"failure"`
	Timeouts    int64            `json:"timeouts"`
	AvgLatency  string           `json:"avg_latency"`
	MinLatency  string           `json:"min_latency"`
	MaxLatency  string           `json:"max_latency"`
	ErrorCounts map[string]int64 `json:"error_counts"`
	LastCall    string           `json:"last_call,omitempty"`
	LastSuccess string           `json:"last_success,omitempty"`
	LastFailure string           `json:"last_failure,omitempty"`
	Healthy     bool             `json:"healthy"`
}

// NewSourceStats creates empty stats for source.
func NewSourceStats(source domain.SourceKind) *SourceStats {
	return &SourceStats{source: source, errorCounts: make(map[string]int64)}
}

// Record records one finished call.
func (s *SourceStats) Record(d time.Duration, err error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.lastCall = now

	if err != nil {
		s.failure++
		s.lastFailure = now
		class := classify(err)
		if class == ErrorClassTimeout {
			s.timeouts++
		}
		s.errorCounts[class]++
		return
	}

	s.success++
	s.lastSuccess = now
	s.totalLatency += d
	if s.minLatency == 0 || d < s.minLatency {
		s.minLatency = d
	}
	if d > s.maxLatency {
		s.maxLatency = d
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrUpstreamTimeout):
		return ErrorClassTimeout
	case errors.Is(err, domain.ErrUpstream):
		return ErrorClassUpstream
	default:
		return ErrorClassOther
	}
}

// Snapshot returns a copy of the current statistics.
func (s *SourceStats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var avg time.Duration
	if s.success > 0 {
		avg = s.totalLatency / time.Duration(s.success)
	}
	counts := make(map[string]int64, len(s.errorCounts))
	for k, v := range s.errorCounts {
		counts[k] = v
	}
	snap := StatsSnapshot{
		Source:      string(s.source),
		Total:       s.total,
		Success:     s.success,
		Failure:     s.failure,
		Timeouts:    s.timeouts,
		AvgLatency:  avg.String(),
		MinLatency:  s.minLatency.String(),
		MaxLatency:  s.maxLatency.String(),
		ErrorCounts: counts,
		Healthy:     s.healthyLocked(),
	}
	if !s.lastCall.IsZero() {
		snap.LastCall = s.lastCall.UTC().Format(time.RFC3339)
	}
	if !s.lastSuccess.IsZero() {
		snap.LastSuccess = s.lastSuccess.UTC().Format(time.RFC3339)
	}
	if !s.lastFailure.IsZero() {
		snap.LastFailure = s.lastFailure.UTC().Format(time.RFC3339)
	}
	return snap
}

// healthyLocked reports false when a failure happened in the last five
// minutes and more than half of all calls have failed.
func (s *SourceStats) healthyLocked() bool {
	if s.lastFailure.IsZero() || time.Since(s.lastFailure) >= 5*time.Minute {
		return true
	}
	if s.total == 0 {
		return true
	}
	return float64(s.failure)/float64(s.total) <= 0.5
}
