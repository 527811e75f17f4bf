package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "order_service"

// Metrics groups the collectors the service records into. All methods are
// safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	CatalogLookups *prometheus.CounterVec
	OrdersCreated  prometheus.Counter
	OrdersRejected *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),
		CatalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookups_total",
			Help:      "Calls to the product catalog by call type and outcome.",
		}, []string{"call", "outcome"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted successfully.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Order creations rejected, by reason.",
		}, []string{"reason"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.CatalogLookups, m.OrdersCreated, m.OrdersRejected)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(method, route).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) CatalogLookup(call, outcome string) {
	if m == nil {
		return
	}
	m.CatalogLookups.WithLabelValues(call, outcome).Inc()
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Metrics) OrderRejected(reason string) {
	if m == nil {
		return
	}
	m.OrdersRejected.WithLabelValues(reason).Inc()
}

// Handler exposes the registry m was built with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
