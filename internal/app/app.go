// Package app runs the apportion and noisy-apportion commands.
package app

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/config"
	"github.com/alexshd/apportion/internal/dataset"
	"github.com/alexshd/apportion/internal/logging"
	"github.com/alexshd/apportion/internal/popfile"
	"github.com/alexshd/apportion/internal/version"
)

// Exit codes: success or failure only.
const (
	exitOK    = 0
	exitError = 1
)

// handleParseError prints usage for flag errors and maps them to an exit code.
func handleParseError(fs *flag.FlagSet, outw *bufio.Writer, stderr io.Writer, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		fs.SetOutput(outw)
		fs.Usage()
		return exitOK
	}
	_, _ = fmt.Fprintln(stderr, err)
	fs.SetOutput(stderr)
	fs.Usage()
	return exitError
}

func printVersion(w io.Writer, name string) int {
	_, _ = fmt.Fprintf(w, "%s version %s\n", name, version.Version)
	return exitOK
}

// newLogger builds the stderr logger; verbose forces debug level.
func newLogger(stderr io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	return logging.New(stderr, logging.Options{Level: level, NoColor: cfg.NoColor})
}

// loadTable reads path, or the bundled 2010 states when path is empty.
func loadTable(path string, log *slog.Logger) (apportion.Table, error) {
	if path == "" {
		t, err := dataset.Census2010()
		if err != nil {
			return apportion.Table{}, err
		}
		log.Debug("loaded populations", "source", dataset.Name, "regions", t.Len(), "total", t.Total())
		return t, nil
	}
	t, err := popfile.Load(path)
	if err != nil {
		return apportion.Table{}, err
	}
	log.Debug("loaded populations", "source", path, "regions", t.Len(), "total", t.Total())
	return t, nil
}
