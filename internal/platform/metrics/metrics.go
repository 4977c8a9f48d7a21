package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps handler tests free of registry setup.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	CheckoutsTotal  *prometheus.CounterVec
}

// New creates and registers the collectors. Call it once per process.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adega_http_request_duration_seconds",
			Help:    "Latency of storefront HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		CheckoutsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "adega_checkouts_total",
			Help: "Checkout submissions by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveRequest records one request latency.
func (m *Metrics) ObserveRequest(route, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
}

// IncrementCheckout counts a checkout submission outcome.
func (m *Metrics) IncrementCheckout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutsTotal.WithLabelValues(outcome).Inc()
}
