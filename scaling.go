package apportion

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ScalingResult is the throughput of one epsilon batch at a given
// worker-pool size.
type ScalingResult struct {
	N          int           // Worker goroutines
	Trials     int           // Trials completed
	Duration   time.Duration // Wall time of the batch
	Throughput float64       // Trials per second
}

// USLCoefficients contains the Universal Scalability Law parameters:
//
//	C(N) = λN / (1 + α(N-1) + βN(N-1))
type USLCoefficients struct {
	Lambda   float64 // λ: Serial throughput (trials/sec at N=1)
	Alpha    float64 // α: Contention coefficient
	Beta     float64 // β: Coordination coefficient
	RSquared float64 // R²: Goodness of fit (1.0 = perfect)
}

// DefaultScalingLevels are the worker-pool sizes probed when none are given.
func DefaultScalingLevels() []int {
	return []int{1, 2, 4, 8}
}

// ProbeScaling runs the same batch (epsilon, trials) once per worker-pool
// size in levels and measures trial throughput. The trials are identical at
// every level, so only the pool size varies.
func (h *Harness) ProbeScaling(ctx context.Context, epsilon float64, trials int, levels []int) ([]ScalingResult, error) {
	if trials < 1 {
		return nil, fmt.Errorf("%w: trials must be ≥ 1, got %d", ErrInvalidInput, trials)
	}
	if len(levels) == 0 {
		levels = DefaultScalingLevels()
	}

	results := make([]ScalingResult, 0, len(levels))
	for _, n := range levels {
		if n < 1 {
			return nil, fmt.Errorf("%w: parallelism must be ≥ 1, got %d", ErrInvalidInput, n)
		}

		start := time.Now()
		errs, err := h.runBatch(ctx, 0, epsilon, trials, n)
		if err != nil {
			return nil, fmt.Errorf("failed at N=%d: %w", n, err)
		}
		elapsed := time.Since(start)

		throughput := 0.0
		if elapsed > 0 {
			throughput = float64(len(errs)) / elapsed.Seconds()
		}
		results = append(results, ScalingResult{
			N:          n,
			Trials:     len(errs),
			Duration:   elapsed,
			Throughput: throughput,
		})
		h.cfg.Logger.Debug("scaling level measured", "n", n, "throughput", throughput)
	}
	return results, nil
}

// FitUSL fits λ, α, β to measured throughput.
//
// The USL is linear after dividing N by C(N):
//
//	N/C(N) = b0 + b1·(N-1) + b2·N(N-1),  λ = 1/b0, α = b1/b0, β = b2/b0
//
// The three-term model is solved by QR least squares. A negative β is a
// timing-noise artifact; the contention-only model is refit instead.
// Levels with zero throughput are ignored.
func FitUSL(results []ScalingResult) (USLCoefficients, error) {
	var ns, ys []float64
	for _, r := range results {
		if r.Throughput <= 0 {
			continue
		}
		n := float64(r.N)
		ns = append(ns, n)
		ys = append(ys, n/r.Throughput)
	}
	if len(ns) < 3 {
		return USLCoefficients{}, fmt.Errorf("need at least 3 measured levels, got %d", len(ns))
	}

	design := mat.NewDense(len(ns), 3, nil)
	for i, n := range ns {
		design.SetRow(i, []float64{1, n - 1, n * (n - 1)})
	}
	var b mat.VecDense
	if err := b.SolveVec(design, mat.NewVecDense(len(ys), ys)); err != nil {
		return USLCoefficients{}, fmt.Errorf("scaling levels do not determine a fit: %w", err)
	}

	c := USLCoefficients{
		Lambda: 1 / b.AtVec(0),
		Alpha:  b.AtVec(1) / b.AtVec(0),
		Beta:   b.AtVec(2) / b.AtVec(0),
	}
	if c.Beta < 0 && c.Alpha > 0 {
		x1 := make([]float64, len(ns))
		for i, n := range ns {
			x1[i] = n - 1
		}
		b0, b1 := stat.LinearRegression(x1, ys, nil, false)
		if b0 != 0 {
			c = USLCoefficients{Lambda: 1 / b0, Alpha: b1 / b0}
		}
	}

	measured := make([]float64, len(ns))
	predicted := make([]float64, len(ns))
	for i, n := range ns {
		measured[i] = n / ys[i]
		predicted[i] = uslModel(n, c.Lambda, c.Alpha, c.Beta)
	}
	if r2 := stat.RSquaredFrom(predicted, measured, nil); !math.IsNaN(r2) && !math.IsInf(r2, 0) {
		c.RSquared = r2
	}
	return c, nil
}

func uslModel(n, lambda, alpha, beta float64) float64 {
	return (lambda * n) / (1 + alpha*(n-1) + beta*n*(n-1))
}

// PredictThroughput estimates trials/sec at a given worker count.
func (c USLCoefficients) PredictThroughput(n int) float64 {
	return uslModel(float64(n), c.Lambda, c.Alpha, c.Beta)
}

// Efficiency returns the ratio of predicted to ideal throughput.
// 1.0 = perfect linear scaling.
func (c USLCoefficients) Efficiency(n int) float64 {
	ideal := c.Lambda * float64(n)
	if ideal == 0 {
		return 0
	}
	return c.PredictThroughput(n) / ideal
}

// PeakParallelism is the worker count where dC/dN = 0:
//
//	N_peak = √((1-α)/β)
//
// +Inf when β ≤ 0 (no coherency penalty, no peak). With α ≥ 1 the pool
// cannot beat a single worker and the peak is 1.
func (c USLCoefficients) PeakParallelism() float64 {
	if c.Beta <= 0 {
		return math.Inf(1)
	}
	if c.Alpha >= 1 {
		return 1
	}
	return math.Sqrt((1 - c.Alpha) / c.Beta)
}

// IsRetrograde reports whether n workers sit at or past the peak, where
// adding workers no longer adds trial throughput.
func (c USLCoefficients) IsRetrograde(n int) bool {
	peak := c.PeakParallelism()
	if math.IsInf(peak, 1) {
		return false
	}
	return float64(n) >= peak
}
