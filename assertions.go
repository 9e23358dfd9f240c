package apportion

import (
	"fmt"
	"strings"
	"testing"
)

// AssertionConfig contains thresholds for experiment properties.
type AssertionConfig struct {
	// Minimum ratio of mean seat error at the noisiest epsilon over the
	// quietest one (1.0 = merely non-decreasing)
	MinErrorGrowth float64

	// Maximum fraction of nonzero trials tolerated at the quietest epsilon
	MaxQuietErrorRate float64
}

// DefaultAssertionConfig returns conservative thresholds.
func DefaultAssertionConfig() AssertionConfig {
	return AssertionConfig{
		MinErrorGrowth:    1.0,  // Noise never helps
		MaxQuietErrorRate: 0.05, // 5% of trials may move a seat at negligible noise
	}
}

// AssertValidAllocation verifies the shape of an allocation.
//
// Properties:
//
//	keys(a) = regions(t)
//	a[k] ≥ 1 for all k
//	Σ a[k] = totalSeats
func AssertValidAllocation(t testing.TB, table Table, a Allocation, totalSeats int) {
	t.Helper()

	if len(a) != table.Len() {
		t.Errorf("Allocation has %d regions, table has %d", len(a), table.Len())
	}
	for _, name := range table.Names() {
		n, ok := a[name]
		if !ok {
			t.Errorf("Region %q missing from allocation", name)
			continue
		}
		if n < 1 {
			t.Errorf("Region %q has %d seats (min: 1)", name, n)
		}
	}
	if got := a.Total(); got != totalSeats {
		t.Errorf("Seats sum to %d, want %d", got, totalSeats)
	}
}

// AssertDeterministic verifies that apportioning the same table twice gives
// the same allocation.
func AssertDeterministic(t testing.TB, table Table, totalSeats int) {
	t.Helper()

	first, err := Apportion(table, totalSeats)
	if err != nil {
		t.Fatalf("Apportion failed: %v", err)
	}
	second, err := Apportion(table, totalSeats)
	if err != nil {
		t.Fatalf("Apportion failed: %v", err)
	}

	if d, err := L1Error(first, second); err != nil || d != 0 {
		t.Errorf("Apportion not deterministic: L1=%d err=%v", d, err)
	}
}

// AssertMonotone verifies that raising one region's population by each
// delta never lowers that region's seat count.
//
// Mathematical property:
//
//	P' > P ⇒ seats(P') ≥ seats(P)
func AssertMonotone(t testing.TB, table Table, totalSeats int, region string, deltas []int64) {
	t.Helper()

	base, err := Apportion(table, totalSeats)
	if err != nil {
		t.Fatalf("Apportion failed: %v", err)
	}
	pop, ok := table.Population(region)
	if !ok {
		t.Fatalf("Region %q not in table", region)
	}

	var failures []string
	prev := base[region]
	for _, d := range deltas {
		bumped, err := table.With(region, pop+d)
		if err != nil {
			t.Fatalf("With failed: %v", err)
		}
		a, err := Apportion(bumped, totalSeats)
		if err != nil {
			t.Fatalf("Apportion failed: %v", err)
		}
		if a[region] < prev {
			failures = append(failures, fmt.Sprintf(
				"  +%d: %d → %d seats", d, prev, a[region]))
		}
		prev = a[region]
	}

	if len(failures) > 0 {
		t.Errorf("Region %q lost seats as its population grew:\n%s", region, strings.Join(failures, "\n"))
	}
}

// AssertL1Laws verifies identity and symmetry of L1Error on a pair.
func AssertL1Laws(t testing.TB, a, b Allocation) {
	t.Helper()

	if d, err := L1Error(a, a); err != nil || d != 0 {
		t.Errorf("L1Error(a, a) = %d, %v; want 0", d, err)
	}

	ab, errAB := L1Error(a, b)
	ba, errBA := L1Error(b, a)
	if (errAB == nil) != (errBA == nil) {
		t.Errorf("L1Error asymmetric errors: %v vs %v", errAB, errBA)
	}
	if ab != ba {
		t.Errorf("L1Error asymmetric: %d vs %d", ab, ba)
	}
}

// AssertNoiseHurts verifies that mean seat error does not shrink as noise
// grows. Results must be ordered from noisiest (smallest ε) to quietest.
func AssertNoiseHurts(t testing.TB, results []EpsilonResult, cfg AssertionConfig) {
	t.Helper()

	if len(results) < 2 {
		t.Fatalf("Need at least 2 epsilons, got %d", len(results))
	}

	noisy := results[0]
	quiet := results[len(results)-1]
	if noisy.Epsilon >= quiet.Epsilon {
		t.Fatalf("Results must go from small to large epsilon, got %g then %g",
			noisy.Epsilon, quiet.Epsilon)
	}

	if noisy.Stats.Mean < quiet.Stats.Mean*cfg.MinErrorGrowth {
		t.Errorf("Mean error did not grow with noise: ε=%g mean=%.3f, ε=%g mean=%.3f",
			noisy.Epsilon, noisy.Stats.Mean, quiet.Epsilon, quiet.Stats.Mean)
	}

	rate := float64(quiet.NonZero) / float64(quiet.Trials)
	if rate > cfg.MaxQuietErrorRate {
		t.Errorf("Too many errors at ε=%g: %.1f%% (max: %.1f%%)",
			quiet.Epsilon, rate*100, cfg.MaxQuietErrorRate*100)
	}

	t.Logf("✓ Noise hurts: ε=%g mean=%.3f max=%d, ε=%g mean=%.3f max=%d",
		noisy.Epsilon, noisy.Stats.Mean, noisy.MaxError,
		quiet.Epsilon, quiet.Stats.Mean, quiet.MaxError)
}

// PrintExperiment outputs an experiment table to the test log.
func PrintExperiment(t testing.TB, results []EpsilonResult) {
	t.Helper()

	t.Logf("\n=== Noise Experiment ===")
	t.Logf("  Epsilon     Trials  Errors  Max  Mean    P95")
	t.Logf("  ----------  ------  ------  ---  ------  ------")
	for _, r := range results {
		t.Logf("  %-10g  %6d  %6d  %3d  %6.2f  %6.2f",
			r.Epsilon, r.Trials, r.NonZero, r.MaxError, r.Stats.Mean, r.Stats.P95)
	}
}
