// Package metrics exposes pipeline counters for the Prometheus textfile
// collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels a fit, search or airport that produced a result.
	OutcomeSuccess = "success"
	// OutcomeError labels one that failed.
	OutcomeError = "error"
)

const namespace = "paxarima"

// Recorder holds the run collectors. It satisfies search.Recorder.
type Recorder struct {
	fitsTotal     *prometheus.CounterVec
	fitSeconds    prometheus.Histogram
	searchesTotal *prometheus.CounterVec
	searchSeconds prometheus.Histogram
	airportsTotal *prometheus.CounterVec
	cacheHits     prometheus.Gauge
	cacheMisses   prometheus.Gauge
}

// New creates unregistered collectors.
func New() *Recorder {
	return &Recorder{
		fitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fits_total",
				Help:      "Candidate SARIMA fits, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		fitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fit_seconds",
				Help:      "Duration of one candidate fit in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Order searches, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		searchSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_seconds",
				Help:      "Duration of one order search in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
			},
		),
		airportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "airports_total",
				Help:      "Airports processed by a run, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fit_cache_hits",
			Help:      "Fits served from the cache during the run.",
		}),
		cacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fit_cache_misses",
			Help:      "Fits computed because the cache had no entry.",
		}),
	}
}

// Register attaches the collectors to reg, tolerating earlier registration.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.fitsTotal,
		r.fitSeconds,
		r.searchesTotal,
		r.searchSeconds,
		r.airportsTotal,
		r.cacheHits,
		r.cacheMisses,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

// ObserveFit records one candidate fit.
func (r *Recorder) ObserveFit(d time.Duration, err error) {
	r.fitsTotal.WithLabelValues(outcome(err)).Inc()
	r.fitSeconds.Observe(seconds(d))
}

// ObserveSearch records one order search.
func (r *Recorder) ObserveSearch(d time.Duration, err error) {
	r.searchesTotal.WithLabelValues(outcome(err)).Inc()
	r.searchSeconds.Observe(seconds(d))
}

// ObserveAirport records the outcome of one airport's pipeline.
func (r *Recorder) ObserveAirport(err error) {
	r.airportsTotal.WithLabelValues(outcome(err)).Inc()
}

// SetCacheStats publishes the fit cache counters.
func (r *Recorder) SetCacheStats(hits, misses uint64) {
	r.cacheHits.Set(float64(hits))
	r.cacheMisses.Set(float64(misses))
}

// WriteTextfile registers r on a fresh registry and writes it to path in the
// node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	reg := prometheus.NewRegistry()
	if err := r.Register(reg); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
