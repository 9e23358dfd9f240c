// Package apportion allocates house seats by the method of equal proportions
// and measures how privacy noise on census counts moves those seats.
//
// # Overview
//
// Two layers:
//
//   - Engine   - Apportion / ApportionTrace: deterministic seat allocation
//   - Harness  - NoisyPopulation, L1Error, ErrorForEpsilon, Harness.Run:
//     Monte Carlo over Laplace noise levels
//
// Supporting pieces:
//
//   - quota      - ideal proportional shares for reporting
//   - stats      - mean / stddev / percentiles of trial errors
//   - metrics    - Prometheus recorder for trials and batches
//   - scaling    - worker-pool throughput probe with a USL fit
//   - assertions - test helpers for allocation properties
//
// # Quick Start
//
//	table, err := apportion.NewTable([]apportion.Region{
//	    {Name: "A", Population: 1000},
//	    {Name: "B", Population: 2000},
//	    {Name: "C", Population: 3000},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	seats, err := apportion.Apportion(table, 6)
//	// seats = {A:1, B:2, C:3}
//
// # Noise Experiments
//
// A Harness fixes the true table and its baseline allocation, then runs
// independent trials per epsilon:
//
//	h, err := apportion.NewHarness(table, apportion.DefaultSeats, apportion.HarnessConfig{
//	    Parallelism: 8,
//	    Seed:        42,
//	})
//	results, err := h.Run(ctx, []float64{0.0001, 0.001, 0.01}, 100)
//	for _, r := range results {
//	    fmt.Printf("%1.5f  errors: %d   max error: %d\n", r.Epsilon, r.NonZero, r.MaxError)
//	}
//
// Each trial draws one Laplace(0, 1/ε) sample per region, rounds, reapportions
// and reports the L1 seat distance to the baseline. Smaller ε means more
// noise and, usually, more seats moved.
//
// # Determinism
//
// Trial j of epsilon i reads its own PCG stream seeded from (Seed, i, j).
// Results are therefore identical for any Parallelism, and the aggregate
// (count of nonzero errors, max error) is an order-free reduction.
//
// # Edge Cases
//
// Noisy populations may go negative; by default they are not clamped
// (HarnessConfig.Clamp changes this). The engine tolerates them: priorities
// are compared as plain float64 and the first region is the initial
// candidate each round.
//
// L1Error returns 0 for value-equal allocations before checking keys.
package apportion
