// Package metrics provides Prometheus counters for quantification runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the counters of one lipidquant run. All Record methods accept a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	hitsTotal            *prometheus.CounterVec
	recordsTotal         *prometheus.CounterVec
	multiPeakTotal       *prometheus.CounterVec
	isotopeFailuresTotal prometheus.Counter
	translationsTotal    *prometheus.CounterVec
	translationDuration  prometheus.Histogram
}

// NewMetrics creates and registers the metrics
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.hitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lipidquant_hits_total",
			Help: "Total number of identifications read",
		},
		[]string{"status"}, // status: accepted, filtered, error
	)

	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lipidquant_records_total",
			Help: "Total number of result records",
		},
		[]string{"operation"}, // operation: created, combined
	)

	m.multiPeakTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lipidquant_multi_peak_warnings_total",
			Help: "Total number of isotope slots that merged more than one peak",
		},
		[]string{"experiment"},
	)

	m.isotopeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lipidquant_isotope_prediction_failures_total",
			Help: "Total number of modifications whose isotope distribution could not be predicted",
		},
	)

	m.translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lipidquant_translations_total",
			Help: "Total number of chromatogram translations",
		},
		[]string{"status"}, // status: success, error
	)

	m.translationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lipidquant_translation_duration_seconds",
			Help:    "Time taken to translate a raw file",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.hitsTotal.Describe(ch)
	m.recordsTotal.Describe(ch)
	m.multiPeakTotal.Describe(ch)
	m.isotopeFailuresTotal.Describe(ch)
	m.translationsTotal.Describe(ch)
	m.translationDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.hitsTotal.Collect(ch)
	m.recordsTotal.Collect(ch)
	m.multiPeakTotal.Collect(ch)
	m.isotopeFailuresTotal.Collect(ch)
	m.translationsTotal.Collect(ch)
	m.translationDuration.Collect(ch)
}

// RecordHit counts one identification by status
func (m *Metrics) RecordHit(status string) {
	if m == nil {
		return
	}
	m.hitsTotal.WithLabelValues(status).Inc()
}

// RecordRecord counts a created or combined result record
func (m *Metrics) RecordRecord(operation string) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(operation).Inc()
}

// RecordMultiPeak counts an isotope slot that received a second peak
func (m *Metrics) RecordMultiPeak(experiment string) {
	if m == nil {
		return
	}
	m.multiPeakTotal.WithLabelValues(experiment).Inc()
}

// RecordIsotopeFailures adds n failed isotope predictions
func (m *Metrics) RecordIsotopeFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.isotopeFailuresTotal.Add(float64(n))
}

// RecordTranslation counts a finished translation and observes its duration
func (m *Metrics) RecordTranslation(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.translationsTotal.WithLabelValues(status).Inc()
	m.translationDuration.Observe(duration.Seconds())
}

// WriteTextfile writes all registered metrics in the text exposition format, e.g. for the
// node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
