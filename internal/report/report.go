// Package report renders apportionment and experiment tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/alexshd/apportion"
)

// EncodePretty writes v as indented JSON to w.
func EncodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSeats prints the total population and one line per region:
// seats, ⌊quota⌋, quota, ⌈quota⌉ and people per seat.
func WriteSeats(w io.Writer, totalPopulation int64, rows []apportion.QuotaRow) error {
	if _, err := fmt.Fprintf(w, "total population: %d\n", totalPopulation); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-15s %5s %7s %7s %7s %15s\n",
		"State", "Seats", "⌊quota⌋", "quota", "⌈quota⌉", "people per seat"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-15s %5d %7d %7.2f %7d %15d\n",
			r.Region, r.Seats, r.QuotaFloor, r.Quota, r.QuotaCeil, r.PeoplePerSeat); err != nil {
			return err
		}
	}
	return nil
}

// SeatsDocument is the JSON form of a seat report.
type SeatsDocument struct {
	TotalSeats      int                  `json:"total_seats"`
	TotalPopulation int64                `json:"total_population"`
	Regions         []apportion.QuotaRow `json:"regions"`
	Compared        *Comparison          `json:"compared,omitempty"`
}

// Comparison reports the distance to a saved allocation.
type Comparison struct {
	Key     string `json:"key"`
	L1Error int    `json:"l1_error"`
}

// WriteComparison prints the L1 distance to a saved run.
func WriteComparison(w io.Writer, c Comparison) error {
	_, err := fmt.Fprintf(w, "compared with %s: %d seat(s) moved\n", c.Key, c.L1Error)
	return err
}

// WriteExperiment prints the per-epsilon summary.
func WriteExperiment(w io.Writer, trials int, results []apportion.EpsilonResult) error {
	if _, err := fmt.Fprintf(w, "Trials per epsilon: %d\n", trials); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Epsilon    Errors       Max Error"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%1.5f  errors: %d   max error: %d\n",
			r.Epsilon, r.NonZero, r.MaxError); err != nil {
			return err
		}
	}
	return nil
}

// ExperimentDocument is the JSON form of an experiment run.
type ExperimentDocument struct {
	Seed        uint64                    `json:"seed"`
	Trials      int                       `json:"trials"`
	Parallelism int                       `json:"parallelism"`
	Clamp       bool                      `json:"clamp"`
	Results     []apportion.EpsilonResult `json:"results"`
	Scaling     *ScalingDocument          `json:"scaling,omitempty"`
}

// ScalingDocument is the JSON form of a scaling probe.
type ScalingDocument struct {
	Levels          []ScalingLevel `json:"levels"`
	Lambda          float64        `json:"lambda"`
	Alpha           float64        `json:"alpha"`
	Beta            float64        `json:"beta"`
	RSquared        float64        `json:"r_squared"`
	PeakParallelism float64        `json:"peak_parallelism,omitempty"`
}

// ScalingLevel is one measured worker-pool size.
type ScalingLevel struct {
	N          int     `json:"n"`
	Throughput float64 `json:"trials_per_sec"`
	Efficiency float64 `json:"efficiency"`
}

// NewScalingDocument pairs measurements with their USL fit.
func NewScalingDocument(results []apportion.ScalingResult, c apportion.USLCoefficients) *ScalingDocument {
	doc := &ScalingDocument{
		Lambda:          finite(c.Lambda),
		Alpha:           finite(c.Alpha),
		Beta:            finite(c.Beta),
		RSquared:        finite(c.RSquared),
		PeakParallelism: finite(c.PeakParallelism()),
	}
	for _, r := range results {
		doc.Levels = append(doc.Levels, ScalingLevel{
			N:          r.N,
			Throughput: r.Throughput,
			Efficiency: finite(c.Efficiency(r.N)),
		})
	}
	return doc
}

// WriteScaling prints measured vs predicted throughput per worker count.
func WriteScaling(w io.Writer, doc *ScalingDocument) error {
	lines := []string{
		"Scaling probe:",
		"  N    Trials/sec    Efficiency",
		"  --   ------------  ----------",
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	for _, l := range doc.Levels {
		if _, err := fmt.Fprintf(w, "  %-4d %12.2f  %8.1f%%\n", l.N, l.Throughput, l.Efficiency*100); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "  α=%.6f β=%.6f R²=%.4f\n", doc.Alpha, doc.Beta, doc.RSquared); err != nil {
		return err
	}
	peak := "unbounded"
	if doc.PeakParallelism > 0 {
		peak = fmt.Sprintf("%.1f", doc.PeakParallelism)
	}
	_, err := fmt.Fprintf(w, "  peak parallelism: %s\n", peak)
	return err
}

// finite maps NaN and ±Inf to 0, which encoding/json cannot represent.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
