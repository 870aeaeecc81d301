// Package metrics defines the Prometheus collectors describing model builds
// and generation runs, and writes them in the node-exporter textfile format
// so a single-shot run can still be scraped.
package metrics

import (
	"strconv"
	"time"

	"github.com/CTAG07/runechain/pkg/markov"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for a run.
type Metrics struct {
	registry          *prometheus.Registry
	BuildDuration     prometheus.Histogram
	MaxOrder          prometheus.Gauge
	StoredContexts    prometheus.Gauge
	CorpusCharacters  prometheus.Gauge
	GeneratedTotal    prometheus.Counter
	FallbacksTotal    prometheus.Counter
	SampleOutcomes    *prometheus.CounterVec
	ContextsPerOrder  *prometheus.GaugeVec
	GenerationLatency prometheus.Histogram
}

// New creates all collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "runechain_build_duration_seconds",
				Help:    "Time spent building the frequency table.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		MaxOrder: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "runechain_max_order",
				Help: "Largest order with an ambiguous context.",
			},
		),
		StoredContexts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "runechain_stored_contexts",
				Help: "Number of ambiguous contexts kept in the frequency table.",
			},
		),
		CorpusCharacters: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "runechain_corpus_characters",
				Help: "Number of characters in the corpus.",
			},
		),
		GeneratedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runechain_generated_characters_total",
				Help: "Total number of characters generated.",
			},
		),
		FallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runechain_fallbacks_total",
				Help: "Times a context was not found anywhere and a random character was used.",
			},
		),
		SampleOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runechain_sample_outcomes_total",
				Help: "Sample calls by how they were answered (uniform, table, cursor, rewind, no_data).",
			},
			[]string{"outcome"},
		),
		ContextsPerOrder: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "runechain_contexts_per_order",
				Help: "Stored contexts by order.",
			},
			[]string{"order"},
		),
		GenerationLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "runechain_generation_duration_seconds",
				Help:    "Time spent generating output.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}

	m.registry.MustRegister(
		m.BuildDuration,
		m.MaxOrder,
		m.StoredContexts,
		m.CorpusCharacters,
		m.GeneratedTotal,
		m.FallbacksTotal,
		m.SampleOutcomes,
		m.ContextsPerOrder,
		m.GenerationLatency,
	)

	return m
}

// Registry returns the registry all collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveBuild records the shape of a freshly built model.
func (m *Metrics) ObserveBuild(stats markov.ModelStats, elapsed time.Duration) {
	m.BuildDuration.Observe(elapsed.Seconds())
	m.MaxOrder.Set(float64(stats.MaxOrder))
	m.StoredContexts.Set(float64(stats.Contexts))
	m.CorpusCharacters.Set(float64(stats.Characters))
	for i, n := range stats.ContextsPerOrder {
		m.ContextsPerOrder.WithLabelValues(strconv.Itoa(i + 1)).Set(float64(n))
	}
}

// ObserveRun records the outcome of one or more generation runs.
func (m *Metrics) ObserveRun(stats markov.RunStats, elapsed time.Duration) {
	m.GenerationLatency.Observe(elapsed.Seconds())
	m.GeneratedTotal.Add(float64(stats.Generated))
	m.FallbacksTotal.Add(float64(stats.Fallbacks))
	m.SampleOutcomes.WithLabelValues("uniform").Add(float64(stats.Sample.Uniform))
	m.SampleOutcomes.WithLabelValues("table").Add(float64(stats.Sample.Table))
	m.SampleOutcomes.WithLabelValues("cursor").Add(float64(stats.Sample.CursorHits))
	m.SampleOutcomes.WithLabelValues("rewind").Add(float64(stats.Sample.RewindHits))
	m.SampleOutcomes.WithLabelValues("no_data").Add(float64(stats.Sample.NoData))
}

// WriteTextfile writes the current metric values to path in the textfile
// collector format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
