package httpapi

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the httpapi package's Prometheus instrumentation, grounded on
// the pack's counter-per-outcome convention for long-running investigation
// pipelines.
type Metrics struct {
	requestsTotal        *prometheus.CounterVec
	investigationOutcome *prometheus.CounterVec
	duplicateRejected    prometheus.Counter
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the package-wide metrics singleton, registering its
// collectors with the default registry on first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

func newMetrics() *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "investigator",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests handled by route and status class",
			},
			[]string{"route", "status"},
		),
		investigationOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "investigator",
				Subsystem: "http",
				Name:      "investigation_outcome_total",
				Help:      "Total investigations completed via the HTTP surface by outcome",
			},
			[]string{"outcome"},
		),
		duplicateRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "investigator",
				Subsystem: "http",
				Name:      "duplicate_rejected_total",
				Help:      "Total investigation requests rejected because the channel already had one running",
			},
		),
	}
	prometheus.MustRegister(m.requestsTotal, m.investigationOutcome, m.duplicateRejected)
	return m
}

// RecordRequest records one HTTP request outcome.
func (m *Metrics) RecordRequest(route, status string) {
	m.requestsTotal.WithLabelValues(route, status).Inc()
}

// RecordOutcome records one investigation's terminal outcome.
func (m *Metrics) RecordOutcome(outcome string) {
	m.investigationOutcome.WithLabelValues(outcome).Inc()
}

// RecordDuplicateRejected records a request rejected for an already-running
// channel.
func (m *Metrics) RecordDuplicateRejected() {
	m.duplicateRejected.Inc()
}
