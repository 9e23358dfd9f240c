// Package cli parses the flags of the apportion commands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/version"
)

// DefaultEpsilons is the epsilon sweep used when -epsilons is not given.
const DefaultEpsilons = "0.00001,0.00005,0.0001,0.0002,0.0003,0.0004,0.0005,0.0006,0.0007,0.0008,0.0009,0.001,.002,.003,.004,.005,0.01,0.05,0.1,0.5,1.0"

// DefaultTrials is the number of trials per epsilon.
const DefaultTrials = 100

// Common holds the flags shared by both commands.
type Common struct {
	Populations string // CSV file; "" = bundled 2010 dataset
	Seats       int
	Verbose     bool
	JSON        bool
	Version     bool
}

// ApportionOptions configures the apportion command.
type ApportionOptions struct {
	Common
	Save    string // store key to save the allocation under
	Compare string // store key of an allocation to compare against
}

// NoisyOptions configures the noisy-apportion command.
type NoisyOptions struct {
	Common
	Epsilons    []float64
	Trials      int
	Threads     int
	Seed        uint64
	Clamp       bool
	Baseline    string // store key of a saved baseline allocation
	Probe       []int  // worker counts for the scaling probe
	MetricsAddr string
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: %s

Version: %s

Usage of %s:
`, name, summary, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

func registerCommon(fs *flag.FlagSet, c *Common, help *bool) {
	fs.StringVar(&c.Populations, "populations", "", "population CSV (name,population; '#' comments) [bundled 2010 states]")
	fs.IntVar(&c.Seats, "seats", apportion.DefaultSeats, "total seats in the house")
	fs.BoolVar(&c.Verbose, "v", false, "verbose trace (debug logging) [false]")
	fs.BoolVar(&c.Verbose, "debug", false, "alias of -v [false]")
	fs.BoolVar(&c.JSON, "json", false, "emit JSON instead of text [false]")
	fs.BoolVar(&c.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(help, "h", false, "show this help message (shorthand) [false]")
}

func (c Common) validate() error {
	if c.Seats < 1 {
		return errors.New("-seats must be ≥ 1")
	}
	return nil
}

// ParseApportion registers and parses the apportion flags.
func ParseApportion(fs *flag.FlagSet, argv []string) (ApportionOptions, error) {
	var opt ApportionOptions
	var help bool

	registerCommon(fs, &opt.Common, &help)
	fs.StringVar(&opt.Save, "save", "", "save the allocation under this store key (file driver: a JSON path)")
	fs.StringVar(&opt.Compare, "compare", "", "report the L1 seat distance to the allocation saved under this key")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	if fs.NArg() > 0 {
		return opt, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return opt, opt.Common.validate()
}

// ParseNoisy registers and parses the noisy-apportion flags.
func ParseNoisy(fs *flag.FlagSet, argv []string) (NoisyOptions, error) {
	var opt NoisyOptions
	var help bool
	var epsilons, probe string

	registerCommon(fs, &opt.Common, &help)
	fs.StringVar(&epsilons, "epsilons", DefaultEpsilons, "comma-separated epsilons")
	fs.IntVar(&opt.Trials, "trials", DefaultTrials, "trials per epsilon")
	fs.IntVar(&opt.Threads, "threads", 1, "worker goroutines per batch (1 = sequential)")
	fs.IntVar(&opt.Threads, "j", 1, "alias of -threads")
	fs.Uint64Var(&opt.Seed, "seed", 0, "random seed (0 = pick one and print it)")
	fs.BoolVar(&opt.Clamp, "clamp", false, "clamp negative noisy populations to zero [false]")
	fs.StringVar(&opt.Baseline, "baseline", "", "use the allocation saved under this store key as baseline")
	fs.StringVar(&probe, "probe", "", "comma-separated worker counts for a scaling probe, e.g. 1,2,4,8")
	fs.StringVar(&opt.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9090")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	if fs.NArg() > 0 {
		return opt, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if err := opt.Common.validate(); err != nil {
		return opt, err
	}
	if opt.Trials < 1 {
		return opt, errors.New("-trials must be ≥ 1")
	}
	if opt.Threads < 1 {
		return opt, errors.New("-threads must be ≥ 1")
	}

	eps, err := ParseEpsilons(epsilons)
	if err != nil {
		return opt, err
	}
	opt.Epsilons = eps

	if probe != "" {
		levels, err := ParseInts(probe)
		if err != nil {
			return opt, fmt.Errorf("-probe: %w", err)
		}
		opt.Probe = levels
	}
	return opt, nil
}

// ParseEpsilons splits a comma-separated list of positive, finite floats.
func ParseEpsilons(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid epsilon %q", f)
		}
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("epsilon %q must be positive and finite", f)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("no epsilons given")
	}
	return out, nil
}

// ParseInts splits a comma-separated list of integers ≥ 1.
func ParseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("invalid level %q", f)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("no levels given")
	}
	return out, nil
}
