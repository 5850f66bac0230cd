// Package metrics provides Prometheus metrics for burndown runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PagesFetched       *prometheus.CounterVec
	IssuesMerged       *prometheus.CounterVec
	OutOfOrderIssues   *prometheus.CounterVec
	SnapshotOperations *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	Requests           *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		PagesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "burndown_pages_fetched_total",
				Help: "Issue pages fetched from the tracker by project.",
			},
			[]string{"project"},
		),
		IssuesMerged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "burndown_issues_merged_total",
				Help: "Issues extracted and merged into the cached state by project.",
			},
			[]string{"project"},
		),
		OutOfOrderIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "burndown_out_of_order_issues_total",
				Help: "Issues found after the cache boundary that were still newer than it.",
			},
			[]string{"project"},
		),
		SnapshotOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "burndown_snapshot_operations_total",
				Help: "Snapshot loads and saves by result.",
			},
			[]string{"operation", "result"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "burndown_run_duration_seconds",
				Help:    "Duration of incremental merge runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"project"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "burndown_http_requests_total",
				Help: "API requests by route and status.",
			},
			[]string{"route", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.PagesFetched)
	reg.MustRegister(m.IssuesMerged)
	reg.MustRegister(m.OutOfOrderIssues)
	reg.MustRegister(m.SnapshotOperations)
	reg.MustRegister(m.RunDuration)
	reg.MustRegister(m.Requests)

	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPage increments the fetched page counter.
func (m *Metrics) RecordPage(project string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(project).Inc()
}

// RecordMerged adds n merged issues.
func (m *Metrics) RecordMerged(project string, n int) {
	if m == nil {
		return
	}
	m.IssuesMerged.WithLabelValues(project).Add(float64(n))
}

// RecordOutOfOrder increments the out-of-order issue counter.
func (m *Metrics) RecordOutOfOrder(project string) {
	if m == nil {
		return
	}
	m.OutOfOrderIssues.WithLabelValues(project).Inc()
}

// RecordSnapshot counts a snapshot load or save.
func (m *Metrics) RecordSnapshot(operation, result string) {
	if m == nil {
		return
	}
	m.SnapshotOperations.WithLabelValues(operation, result).Inc()
}

// ObserveRun records the duration of a merge run.
func (m *Metrics) ObserveRun(project string, seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(project).Observe(seconds)
}

// RecordRequest increments the API request counter.
func (m *Metrics) RecordRequest(route, status string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, status).Inc()
}
