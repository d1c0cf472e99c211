// ============================================================================
// teampool Metrics - Prometheus Monitoring
// ============================================================================
//
// Package: internal/metrics
// File: collector.go
// Purpose: Expose a Team's point-in-time Statistics as Prometheus gauges.
//
// Design:
//   Team.Statistics() is an inexpensive unsynchronized read (see team.go), so
//   rather than hand-updating counters on every Do/Grow/Shrink call,
//   PoolCollector implements prometheus.Collector directly and samples
//   Statistics() once per scrape. This keeps the hot dispatch path free of
//   metrics bookkeeping entirely.
//
// HTTP Endpoint:
//   Exposed via /metrics, scraped by Prometheus. Default port: 9090.
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beaverpool/teampool/team"
)

// PoolCollector is a prometheus.Collector that reports one Team's idle/busy/
// backlog counts, labelled by pool name, sampled at scrape time.
type PoolCollector struct {
	name  string
	stats func() team.Statistics

	idleDesc    *prometheus.Desc
	busyDesc    *prometheus.Desc
	backlogDesc *prometheus.Desc
}

// NewPoolCollector builds a PoolCollector around stats, usually
// (*team.Team).Statistics. name labels every metric this collector emits, so
// multiple pools can be registered side by side.
func NewPoolCollector(name string, stats func() team.Statistics) *PoolCollector {
	labels := prometheus.Labels{"pool": name}
	return &PoolCollector{
		name:  name,
		stats: stats,
		idleDesc: prometheus.NewDesc(
			"teampool_idle_workers",
			"Current number of idle workers in the pool.",
			nil, labels,
		),
		busyDesc: prometheus.NewDesc(
			"teampool_busy_workers",
			"Current number of busy workers in the pool.",
			nil, labels,
		),
		backlogDesc: prometheus.NewDesc(
			"teampool_backlogged_work",
			"Current number of tasks waiting for a worker.",
			nil, labels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.idleDesc
	ch <- c.busyDesc
	ch <- c.backlogDesc
}

// Collect implements prometheus.Collector, sampling Statistics() fresh for
// every scrape.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(s.IdleWorkers))
	ch <- prometheus.MustNewConstMetric(c.busyDesc, prometheus.GaugeValue, float64(s.BusyWorkers))
	ch <- prometheus.MustNewConstMetric(c.backlogDesc, prometheus.GaugeValue, float64(s.BackloggedWork))
}

// StartServer starts the Prometheus /metrics HTTP endpoint on the given
// port. It blocks until the server stops or fails.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, mux)
}
