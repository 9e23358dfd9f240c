package apportion

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ErrorStatistics summarises the seat errors of one epsilon batch.
type ErrorStatistics struct {
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// CalculateStatistics computes mean, population standard deviation and
// empirical percentiles of the trial errors. Input order does not matter.
func CalculateStatistics(errs []int) ErrorStatistics {
	if len(errs) == 0 {
		return ErrorStatistics{}
	}

	sorted := make([]float64, len(errs))
	for i, e := range errs {
		sorted[i] = float64(e)
	}
	slices.Sort(sorted)

	mean, stddev := stat.PopMeanStdDev(sorted, nil)

	return ErrorStatistics{
		Mean:   mean,
		Stddev: stddev,
		P50:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}

// summarize reduces trial errors to an EpsilonResult. Count and max are
// commutative, so the order trials finished in is irrelevant.
func summarize(epsilon float64, errs []int) EpsilonResult {
	r := EpsilonResult{Epsilon: epsilon, Trials: len(errs)}
	for _, e := range errs {
		if e != 0 {
			r.NonZero++
		}
		if e > r.MaxError {
			r.MaxError = e
		}
	}
	r.Stats = CalculateStatistics(errs)
	return r
}
