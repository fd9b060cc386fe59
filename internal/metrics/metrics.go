// Package metrics defines the Prometheus collectors for the site and the gin
// middleware that feeds the HTTP ones.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload results.
const (
	ResultOK         = "ok"
	ResultParseError = "parse_error"
	ResultTooLarge   = "too_large"
	ResultRejected   = "rejected"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	UploadsTotal         *prometheus.CounterVec
	RowsIngested         prometheus.Histogram
	FilterQueriesTotal   *prometheus.CounterVec
	ActiveSessions       prometheus.Gauge
	VisitsRecorded       prometheus.Counter
	ContactMessages      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publication_uploads_total",
				Help: "Publication CSV uploads by result (ok, parse_error, too_large, rejected).",
			},
			[]string{"result"},
		),
		RowsIngested: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "publication_rows_ingested",
				Help:    "Rows per successfully ingested publication upload.",
				Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
			},
		),
		FilterQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publication_filter_queries_total",
				Help: "Publication views by whether a keyword was applied and whether it matched.",
			},
			[]string{"outcome"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "upload_sessions_active",
				Help: "Sessions currently holding an uploaded table (memory backend only).",
			},
		),
		VisitsRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "visits_recorded_total",
				Help: "Page visits written to the visitor store.",
			},
		),
		ContactMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_messages_total",
				Help: "Contact form submissions by result.",
			},
			[]string{"result"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.UploadsTotal,
		m.RowsIngested,
		m.FilterQueriesTotal,
		m.ActiveSessions,
		m.VisitsRecorded,
		m.ContactMessages,
	)
	return m
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight requests. Routes
// are labelled by their registered pattern so query strings and unknown
// paths do not blow up label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveFilter records one publications view. Outcome is "all" without a
// keyword, "match" or "empty" with one.
func (m *Metrics) ObserveFilter(keyword string, shown int) {
	outcome := "all"
	switch {
	case keyword == "":
	case shown == 0:
		outcome = "empty"
	default:
		outcome = "match"
	}
	m.FilterQueriesTotal.WithLabelValues(outcome).Inc()
}
