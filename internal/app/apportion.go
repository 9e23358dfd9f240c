package app

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/cli"
	"github.com/alexshd/apportion/internal/config"
	"github.com/alexshd/apportion/internal/report"
)

// RunApportion apportions the house once and prints the seat table.
func RunApportion(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("apportion", "apportion house seats by the method of equal proportions")
	fs.SetOutput(io.Discard)

	opts, err := cli.ParseApportion(fs, argv)
	if err != nil {
		return handleParseError(fs, outw, stderr, err)
	}
	if opts.Version {
		return printVersion(outw, "apportion")
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

	alloc, err := apportion.ApportionTrace(table, opts.Seats, func(r apportion.Round) {
		log.Debug("house seat",
			"seat", r.Seat,
			"region", r.Region,
			"priority", r.Priority,
			"seats", r.RegionSeats)
	})
	if err != nil {
		log.Error("apportion", "err", err)
		return exitError
	}

	rows, err := apportion.Quotas(table, alloc)
	if err != nil {
		log.Error("quotas", "err", err)
		return exitError
	}

	var cmp *report.Comparison
	if opts.Save != "" || opts.Compare != "" {
		st, err := OpenStore(ctx, cfg.Store)
		if err != nil {
			log.Error("open store", "driver", cfg.Store.Driver, "err", err)
			return exitError
		}
		defer func() { _ = st.Close() }()

		if opts.Compare != "" {
			prev, err := st.Load(ctx, opts.Compare)
			if err != nil {
				log.Error("load comparison", "key", opts.Compare, "err", err)
				return exitError
			}
			d, err := apportion.L1Error(prev, alloc)
			if err != nil {
				log.Error("compare", "key", opts.Compare, "err", err)
				return exitError
			}
			cmp = &report.Comparison{Key: opts.Compare, L1Error: d}
		}
		if opts.Save != "" {
			if err := st.Save(ctx, opts.Save, alloc); err != nil {
				log.Error("save allocation", "key", opts.Save, "err", err)
				return exitError
			}
			log.Info("allocation saved", "driver", st.Driver(), "key", opts.Save)
		}
	}

	if opts.JSON {
		err = report.EncodePretty(outw, report.SeatsDocument{
			TotalSeats:      alloc.Total(),
			TotalPopulation: table.Total(),
			Regions:         rows,
			Compared:        cmp,
		})
	} else {
		err = report.WriteSeats(outw, table.Total(), rows)
		if err == nil && cmp != nil {
			err = report.WriteComparison(outw, *cmp)
		}
	}
	if err == nil {
		err = outw.Flush()
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitOK
}
