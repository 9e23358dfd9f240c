package apportion

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives trial and batch outcomes from a Harness.
// Implementations must be safe for concurrent use: trials report from
// worker goroutines.
type Recorder interface {
	ObserveTrial(epsilon float64, seatError int)
	ObserveBatch(result EpsilonResult, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTrial(float64, int)                 {}
func (nopRecorder) ObserveBatch(EpsilonResult, time.Duration) {}

// PrometheusRecorder exports harness counters and histograms.
type PrometheusRecorder struct {
	trials    *prometheus.CounterVec
	nonzero   *prometheus.CounterVec
	seatError *prometheus.HistogramVec
	batch     *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the harness metrics with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apportion",
			Name:      "trials_total",
			Help:      "Noisy apportionment trials completed.",
		}, []string{"epsilon"}),
		nonzero: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apportion",
			Name:      "nonzero_trials_total",
			Help:      "Trials whose noisy apportionment differed from the baseline.",
		}, []string{"epsilon"}),
		seatError: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apportion",
			Name:      "seat_error",
			Help:      "L1 seat error per trial.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"epsilon"}),
		batch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apportion",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one epsilon batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"epsilon"}),
	}

	for _, c := range []prometheus.Collector{r.trials, r.nonzero, r.seatError, r.batch} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveTrial implements Recorder.
func (r *PrometheusRecorder) ObserveTrial(epsilon float64, seatError int) {
	label := epsilonLabel(epsilon)
	r.trials.WithLabelValues(label).Inc()
	if seatError != 0 {
		r.nonzero.WithLabelValues(label).Inc()
	}
	r.seatError.WithLabelValues(label).Observe(float64(seatError))
}

// ObserveBatch implements Recorder.
func (r *PrometheusRecorder) ObserveBatch(result EpsilonResult, elapsed time.Duration) {
	r.batch.WithLabelValues(epsilonLabel(result.Epsilon)).Observe(elapsed.Seconds())
}

func epsilonLabel(epsilon float64) string {
	return strconv.FormatFloat(epsilon, 'g', -1, 64)
}
