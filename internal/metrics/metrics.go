// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Harvest jobs used as the "job" label.
const (
	JobNews      = "news"
	JobEvents    = "events"
	JobManual    = "manual"
	JobCalendars = "calendars"
)

// Outcomes used as the "outcome" label.
const (
	OutcomeStored  = "stored"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	HarvestItems = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tekkin_harvest_items_total",
		Help: "Items processed by the harvest jobs.",
	}, []string{"job", "source", "outcome"})

	HarvestRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tekkin_harvest_runs_total",
		Help: "Per-source harvest outcomes.",
	}, []string{"job", "status"})

	HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tekkin_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Item records one processed item.
func Item(job, source, outcome string) {
	HarvestItems.WithLabelValues(job, source, outcome).Inc()
}

// Run records the status of one source/artist/record of a run.
func Run(job, status string) {
	HarvestRuns.WithLabelValues(job, status).Inc()
}

// ObserveHTTP records one request served on route.
func ObserveHTTP(route string, code int, start time.Time) {
	HTTPDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(time.Since(start).Seconds())
}
