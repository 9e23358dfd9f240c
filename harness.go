package apportion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
)

// HarnessConfig controls noisy trial execution.
type HarnessConfig struct {
	Parallelism int          // Worker goroutines per batch (≤1 = sequential, no pool)
	Seed        uint64       // Base seed; each trial derives its own stream from it
	Clamp       bool         // Clamp negative noisy populations to zero
	Logger      *slog.Logger // Batch progress (Info) and per-region noise (Debug)
	Recorder    Recorder     // Trial metrics (nil = discard)
}

// DefaultHarnessConfig returns a sequential harness with seed 1.
func DefaultHarnessConfig() HarnessConfig {
	return HarnessConfig{
		Parallelism: 1,
		Seed:        1,
	}
}

// EpsilonResult aggregates the trials run at one epsilon.
type EpsilonResult struct {
	Epsilon  float64         `json:"epsilon"`
	Trials   int             `json:"trials"`
	NonZero  int             `json:"errors"`    // Trials with seat error ≠ 0
	MaxError int             `json:"max_error"` // Largest seat error observed
	Stats    ErrorStatistics `json:"stats"`
}

// ErrorForEpsilon draws one noisy table from src, reapportions it with the
// baseline's house size and returns the L1 seat error against baseline.
func ErrorForEpsilon(base Table, baseline Allocation, epsilon float64, src rand.Source) (int, error) {
	noisy, err := NoisyPopulation(base, epsilon, src)
	if err != nil {
		return 0, err
	}
	return errorForTable(noisy, baseline)
}

func errorForTable(noisy Table, baseline Allocation) (int, error) {
	alloc, err := Apportion(noisy, baseline.Total())
	if err != nil {
		return 0, err
	}
	return L1Error(baseline, alloc)
}

// Harness runs noise-sensitivity experiments against a fixed baseline.
// The base table and baseline allocation are read-only after construction
// and shared by all trials.
type Harness struct {
	base     Table
	baseline Allocation
	cfg      HarnessConfig
}

// NewHarness apportions base into totalSeats and uses the result as baseline.
func NewHarness(base Table, totalSeats int, cfg HarnessConfig) (*Harness, error) {
	baseline, err := Apportion(base, totalSeats)
	if err != nil {
		return nil, fmt.Errorf("baseline apportionment: %w", err)
	}
	return newHarness(base, baseline, cfg), nil
}

// NewHarnessWithBaseline uses a previously computed (or loaded) baseline.
// The baseline must cover exactly the regions of base.
func NewHarnessWithBaseline(base Table, baseline Allocation, cfg HarnessConfig) (*Harness, error) {
	if len(baseline) != base.Len() {
		return nil, fmt.Errorf("%w: baseline has %d regions, table %d", ErrKeyMismatch, len(baseline), base.Len())
	}
	for _, name := range base.Names() {
		if _, ok := baseline[name]; !ok {
			return nil, fmt.Errorf("%w: region %q missing from baseline", ErrKeyMismatch, name)
		}
	}
	if err := baseline.Validate(baseline.Total()); err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	if baseline.Total() < base.Len() {
		return nil, fmt.Errorf("%w: baseline house of %d seats for %d regions", ErrInvalidInput, baseline.Total(), base.Len())
	}
	return newHarness(base, baseline.Clone(), cfg), nil
}

func newHarness(base Table, baseline Allocation, cfg HarnessConfig) *Harness {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Harness{base: base, baseline: baseline, cfg: cfg}
}

// Baseline returns a copy of the baseline allocation.
func (h *Harness) Baseline() Allocation { return h.baseline.Clone() }

// Base returns the true population table.
func (h *Harness) Base() Table { return h.base }

// Config returns the effective configuration.
func (h *Harness) Config() HarnessConfig { return h.cfg }

// TrialSource returns the deterministic random stream of one trial.
// Trials are independent streams of a PCG keyed by (seed, epsilon index,
// trial), which is what makes results identical at any parallelism.
func TrialSource(seed uint64, epsilonIndex, trial int) rand.Source {
	return rand.NewPCG(seed, uint64(epsilonIndex)<<32|uint64(uint32(trial)))
}

// Trial runs a single noisy reapportionment.
func (h *Harness) Trial(epsilonIndex int, epsilon float64, trial int) (int, error) {
	src := TrialSource(h.cfg.Seed, epsilonIndex, trial)

	var (
		noisy Table
		err   error
	)
	if h.cfg.Clamp {
		noisy, err = ClampedNoisyPopulation(h.base, epsilon, src)
	} else {
		noisy, err = NoisyPopulation(h.base, epsilon, src)
	}
	if err != nil {
		return 0, err
	}

	if h.cfg.Logger.Enabled(context.Background(), slog.LevelDebug) {
		for _, r := range noisy.Regions() {
			truth, _ := h.base.Population(r.Name)
			h.cfg.Logger.Debug("noisy population",
				"epsilon", epsilon, "trial", trial,
				"region", r.Name, "population", truth, "noisy", r.Population)
		}
	}

	seatErr, err := errorForTable(noisy, h.baseline)
	if err != nil {
		return 0, err
	}
	h.cfg.Recorder.ObserveTrial(epsilon, seatErr)
	return seatErr, nil
}

// Run executes trials noisy reapportionments at every epsilon, in order.
//
// On a trial failure the current batch is abandoned and a *ComputationError
// is returned together with the results of the epsilons that completed
// before it. Cancelling ctx abandons in-flight trials.
func (h *Harness) Run(ctx context.Context, epsilons []float64, trials int) ([]EpsilonResult, error) {
	if trials < 1 {
		return nil, fmt.Errorf("%w: trials must be ≥ 1, got %d", ErrInvalidInput, trials)
	}

	results := make([]EpsilonResult, 0, len(epsilons))
	for i, eps := range epsilons {
		start := time.Now()
		errs, err := h.runBatch(ctx, i, eps, trials, h.cfg.Parallelism)
		if err != nil {
			return results, err
		}
		elapsed := time.Since(start)

		res := summarize(eps, errs)
		h.cfg.Recorder.ObserveBatch(res, elapsed)
		h.cfg.Logger.Info("epsilon batch complete",
			"epsilon", eps,
			"trials", res.Trials,
			"errors", res.NonZero,
			"max_error", res.MaxError,
			"elapsed", elapsed)
		results = append(results, res)
	}
	return results, nil
}

type trialResult struct {
	trial   int
	seatErr int
}

// runBatch returns the seat error of every trial of one epsilon, in no
// particular order.
func (h *Harness) runBatch(ctx context.Context, epsIndex int, eps float64, trials, parallelism int) ([]int, error) {
	if err := checkEpsilon(eps); err != nil {
		return nil, &ComputationError{Epsilon: eps, Trial: -1, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if parallelism <= 1 {
		errs := make([]int, 0, trials)
		for t := 0; t < trials; t++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			e, err := h.Trial(epsIndex, eps, t)
			if err != nil {
				return nil, &ComputationError{Epsilon: eps, Trial: t, Err: err}
			}
			errs = append(errs, e)
		}
		return errs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	results := make(chan trialResult, parallelism)

	g.Go(func() error {
		defer close(jobs)
		for t := 0; t < trials; t++ {
			select {
			case jobs <- t:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < parallelism; w++ {
		g.Go(func() error {
			for t := range jobs {
				e, err := h.Trial(epsIndex, eps, t)
				if err != nil {
					return &ComputationError{Epsilon: eps, Trial: t, Err: err}
				}
				select {
				case results <- trialResult{trial: t, seatErr: e}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var werr error
	go func() {
		werr = g.Wait()
		close(results)
	}()

	errs := make([]int, 0, trials)
	for r := range results {
		errs = append(errs, r.seatErr)
	}

	if werr != nil {
		var ce *ComputationError
		if !errors.As(werr, &ce) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, werr
	}
	return errs, nil
}
