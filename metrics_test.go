package apportion

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestPrometheusRecorder_Harness counts every trial of a run.
func TestPrometheusRecorder_Harness(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusRecorder failed: %v", err)
	}

	cfg := DefaultHarnessConfig()
	cfg.Parallelism = 3
	cfg.Recorder = rec
	h, err := NewHarness(experimentTable(), 30, cfg)
	if err != nil {
		t.Fatalf("NewHarness failed: %v", err)
	}

	results, err := h.Run(context.Background(), []float64{0.0001, 0.5}, 25)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, r := range results {
		label := epsilonLabel(r.Epsilon)
		if got := testutil.ToFloat64(rec.trials.WithLabelValues(label)); got != 25 {
			t.Errorf("ε=%s: trials_total = %v, want 25", label, got)
		}
		if got := testutil.ToFloat64(rec.nonzero.WithLabelValues(label)); got != float64(r.NonZero) {
			t.Errorf("ε=%s: nonzero_trials_total = %v, want %d", label, got, r.NonZero)
		}
	}

	if n := testutil.CollectAndCount(rec.batch); n != 2 {
		t.Errorf("Expected 2 batch duration series, got %d", n)
	}
	if n := testutil.CollectAndCount(rec.seatError); n != 2 {
		t.Errorf("Expected 2 seat error series, got %d", n)
	}
}

func TestPrometheusRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusRecorder(reg); err != nil {
		t.Fatalf("NewPrometheusRecorder failed: %v", err)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Error("Expected an error registering the same metrics twice")
	}
}

func TestPrometheusRecorder_ObserveBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusRecorder failed: %v", err)
	}
	rec.ObserveBatch(EpsilonResult{Epsilon: 0.001, Trials: 10}, 40*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "apportion_batch_duration_seconds" {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 1 {
			t.Errorf("Expected 1 batch sample, got %d", h.GetSampleCount())
		}
		return
	}
	t.Error("apportion_batch_duration_seconds not gathered")
}

func TestEpsilonLabel(t *testing.T) {
	tests := map[float64]string{
		0.00001: "1e-05",
		0.5:     "0.5",
		1:       "1",
	}
	for eps, want := range tests {
		if got := epsilonLabel(eps); got != want {
			t.Errorf("epsilonLabel(%v) = %q, want %q", eps, got, want)
		}
	}
}
