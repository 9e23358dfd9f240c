package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/cli"
	"github.com/alexshd/apportion/internal/config"
	"github.com/alexshd/apportion/internal/report"
)

// RunNoisy runs the epsilon sweep and prints one summary line per epsilon.
func RunNoisy(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("noisy-apportion", "measure seat movement under Laplace noise on populations")
	fs.SetOutput(io.Discard)

	opts, err := cli.ParseNoisy(fs, argv)
	if err != nil {
		return handleParseError(fs, outw, stderr, err)
	}
	if opts.Version {
		return printVersion(outw, "noisy-apportion")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitError
	}
	log := newLogger(stderr, cfg, opts.Verbose)

	table, err := loadTable(opts.Populations, log)
	if err != nil {
		log.Error("load populations", "err", err)
		return exitError
	}

	seed := opts.Seed
	if seed == 0 {
		seed = randomSeed()
	}
	log.Info("seed", "seed", seed)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	rec, err := apportion.NewPrometheusRecorder(reg)
	if err != nil {
		log.Error("register metrics", "err", err)
		return exitError
	}
	if opts.MetricsAddr != "" {
		addr, stop, err := serveMetrics(opts.MetricsAddr, reg, log)
		if err != nil {
			log.Error("metrics listener", "addr", opts.MetricsAddr, "err", err)
			return exitError
		}
		defer stop()
		log.Info("serving metrics", "addr", addr)
	}

	hcfg := apportion.HarnessConfig{
		Parallelism: opts.Threads,
		Seed:        seed,
		Clamp:       opts.Clamp,
		Logger:      log,
		Recorder:    rec,
	}
	h, err := newNoisyHarness(ctx, cfg, opts, table, hcfg, log)
	if err != nil {
		log.Error("baseline", "err", err)
		return exitError
	}

	results, runErr := h.Run(ctx, opts.Epsilons, opts.Trials)

	var scaling *report.ScalingDocument
	if runErr == nil && len(opts.Probe) > 0 {
		scaling, runErr = probe(ctx, h, opts, log)
	}

	if opts.JSON {
		err = report.EncodePretty(outw, report.ExperimentDocument{
			Seed:        seed,
			Trials:      opts.Trials,
			Parallelism: opts.Threads,
			Clamp:       opts.Clamp,
			Results:     results,
			Scaling:     scaling,
		})
	} else {
		_, err = fmt.Fprintf(outw, "Seed: %d\n", seed)
		if err == nil {
			err = report.WriteExperiment(outw, opts.Trials, results)
		}
		if err == nil && scaling != nil {
			err = report.WriteScaling(outw, scaling)
		}
	}
	if err == nil {
		err = outw.Flush()
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitError
	}

	if runErr != nil {
		var ce *apportion.ComputationError
		if errors.As(runErr, &ce) {
			log.Error("trial failed", "epsilon", ce.Epsilon, "trial", ce.Trial, "err", ce.Err)
		} else {
			log.Error("experiment aborted", "err", runErr)
		}
		return exitError
	}
	return exitOK
}

// newNoisyHarness apportions the baseline from the table, or loads it from
// the store when -baseline is set.
func newNoisyHarness(ctx context.Context, cfg config.Config, opts cli.NoisyOptions, table apportion.Table, hcfg apportion.HarnessConfig, log *slog.Logger) (*apportion.Harness, error) {
	if opts.Baseline == "" {
		return apportion.NewHarness(table, opts.Seats, hcfg)
	}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() { _ = st.Close() }()

	baseline, err := st.Load(ctx, opts.Baseline)
	if err != nil {
		return nil, err
	}
	log.Info("baseline loaded", "driver", st.Driver(), "key", opts.Baseline, "seats", baseline.Total())
	return apportion.NewHarnessWithBaseline(table, baseline, hcfg)
}

// probe measures trial throughput at each requested pool size using the
// first epsilon of the sweep, and fits the USL curve when possible.
func probe(ctx context.Context, h *apportion.Harness, opts cli.NoisyOptions, log *slog.Logger) (*report.ScalingDocument, error) {
	measured, err := h.ProbeScaling(ctx, opts.Epsilons[0], opts.Trials, opts.Probe)
	if err != nil {
		return nil, err
	}
	coeffs, err := apportion.FitUSL(measured)
	if err != nil {
		log.Warn("scaling fit skipped", "err", err)
		coeffs = apportion.USLCoefficients{}
	} else {
		log.Info("scaling fit",
			"alpha", coeffs.Alpha,
			"beta", coeffs.Beta,
			"r_squared", coeffs.RSquared,
			"peak", coeffs.PeakParallelism())
		if coeffs.IsRetrograde(opts.Threads) {
			log.Warn("worker pool past peak throughput",
				"threads", opts.Threads,
				"peak", coeffs.PeakParallelism())
		}
	}
	return report.NewScalingDocument(measured, coeffs), nil
}

// serveMetrics exposes reg on addr until the returned stop func is called.
// It returns the bound address, which differs from addr for port 0.
func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server", "err", err)
		}
	}()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func randomSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}
