// Package metrics counts what happened during a run and dumps it in the
// Prometheus text format next to the result tables.
package metrics

import (
	"sync"

	"github.com/ja7ad/spsim/pkg/study"
	"github.com/ja7ad/spsim/pkg/system/proc"
	"github.com/prometheus/client_golang/prometheus"
)

// File is the name of the metrics dump inside the run directory.
const File = "metrics.prom"

const namespace = "spsim"

// Metrics is safe for concurrent use.
type Metrics struct {
	reg *prometheus.Registry

	combinations prometheus.Gauge
	results      *prometheus.CounterVec
	duration     prometheus.Histogram
	cpu          prometheus.Counter
	peakRSS      prometheus.Gauge
	checkpoints  prometheus.Counter

	mu   sync.Mutex
	peak float64
}

// New registers the run metrics for a sweep of n combinations on a fresh
// registry.
func New(n int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		combinations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "combinations",
			Help:      "Number of combinations in the sweep.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Results stored, by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_duration_seconds",
			Help:      "Wall time of one combination.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		cpu: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_cpu_seconds_total",
			Help:      "CPU time consumed by worker processes.",
		}),
		peakRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_peak_rss_bytes",
			Help:      "Largest resident set of any worker process.",
		}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Intermediate saves of the result tables.",
		}),
	}
	m.reg.MustRegister(m.combinations, m.results, m.duration, m.cpu, m.peakRSS, m.checkpoints)
	m.combinations.Set(float64(n))
	for _, k := range []study.Kind{study.KindSuccess, study.KindEarlyExit, study.KindError} {
		m.results.WithLabelValues(k.String())
	}
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe counts one stored result.
func (m *Metrics) Observe(r study.Result) {
	m.results.WithLabelValues(r.Status.Kind.String()).Inc()
	if d := r.End.Sub(r.Begin); d > 0 {
		m.duration.Observe(d.Seconds())
	}
}

// ObserveUsage accounts one finished worker process.
func (m *Metrics) ObserveUsage(u proc.Usage) {
	if u.CPUSeconds > 0 {
		m.cpu.Add(u.CPUSeconds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := float64(u.PeakRSS); v > m.peak {
		m.peak = v
		m.peakRSS.Set(v)
	}
}

// Checkpoint counts one intermediate save.
func (m *Metrics) Checkpoint() { m.checkpoints.Inc() }

// WriteFile dumps every metric to path, replacing it.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
