package apportion

import (
	"math"
	"testing"
)

// TestCalculateStatistics verifies mean, deviation and percentiles.
func TestCalculateStatistics(t *testing.T) {
	// Unsorted on purpose.
	stats := CalculateStatistics([]int{4, 0, 2, 1, 3})

	if stats.Mean != 2 {
		t.Errorf("Mean: expected 2, got %v", stats.Mean)
	}
	if math.Abs(stats.Stddev-math.Sqrt2) > 1e-12 {
		t.Errorf("Stddev: expected √2, got %v", stats.Stddev)
	}
	if stats.P50 != 2 {
		t.Errorf("P50: expected 2, got %v", stats.P50)
	}
	if stats.P95 != 4 || stats.P99 != 4 {
		t.Errorf("P95/P99: expected 4/4, got %v/%v", stats.P95, stats.P99)
	}

	t.Logf("Stats: mean=%.2f, sd=%.3f, p50=%v, p95=%v, p99=%v",
		stats.Mean, stats.Stddev, stats.P50, stats.P95, stats.P99)
}

func TestCalculateStatistics_Empty(t *testing.T) {
	if got := CalculateStatistics(nil); got != (ErrorStatistics{}) {
		t.Errorf("Expected zero statistics, got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	r := summarize(0.5, []int{0, 3, 0, 1})
	if r.Epsilon != 0.5 || r.Trials != 4 {
		t.Errorf("Expected ε=0.5 with 4 trials, got %+v", r)
	}
	if r.NonZero != 2 {
		t.Errorf("NonZero: expected 2, got %d", r.NonZero)
	}
	if r.MaxError != 3 {
		t.Errorf("MaxError: expected 3, got %d", r.MaxError)
	}
	if r.Stats.Mean != 1 {
		t.Errorf("Mean: expected 1, got %v", r.Stats.Mean)
	}
}
