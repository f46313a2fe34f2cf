// Package metrics exposes Prometheus collectors for the tracker and the
// HTTP layer.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/core"
)

const namespace = "fintrack"

// Metrics groups the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	creates       *prometheus.CounterVec
	createLatency prometheus.Histogram
	validations   prometheus.Counter
	rateLimited   prometheus.Counter
	httpRequests  *prometheus.CounterVec
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expense_fetches_total",
			Help:      "Expense list fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expense_fetch_duration_seconds",
			Help:      "Latency of expense list fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		creates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expense_creates_total",
			Help:      "Expense create calls by outcome.",
		}, []string{"outcome"}),
		createLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expense_create_duration_seconds",
			Help:      "Latency of expense create calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		validations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expense_validation_failures_total",
			Help:      "Submissions rejected before any network call.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "class"}),
	}
	reg.MustRegister(
		m.fetches, m.fetchDuration, m.creates, m.createLatency,
		m.validations, m.rateLimited, m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Outcome classifies an error for the outcome label.
func Outcome(err error) string {
	var perr *core.ParseError
	switch {
	case err == nil:
		return "ok"
	case core.IsNetwork(err):
		return "network_error"
	case errors.As(err, &perr):
		return "parse_error"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	m.fetches.WithLabelValues(Outcome(err)).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveCreate(d time.Duration, err error) {
	m.creates.WithLabelValues(Outcome(err)).Inc()
	m.createLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveValidation() { m.validations.Inc() }

func (m *Metrics) ObserveRateLimited() { m.rateLimited.Inc() }

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 300:
		class = "3xx"
	}
	m.httpRequests.WithLabelValues(route, class).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
