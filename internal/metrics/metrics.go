package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	StockOperations      *prometheus.CounterVec
	ReservationsExpired  prometheus.Counter
	LowStockEvaluations  *prometheus.CounterVec
	OrderTransitions     *prometheus.CounterVec
	FulfillmentAdvances  *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
	m.StockOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_operations_total",
			Help:      "Stock operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
	m.ReservationsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_expired_total",
			Help:      "Reservations released by the expiry sweep",
		},
	)
	m.LowStockEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_evaluations_total",
			Help:      "Low-stock evaluations by resulting action",
		},
		[]string{"action"},
	)
	m.OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by target status and outcome",
		},
		[]string{"status", "outcome"},
	)
	m.FulfillmentAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillment_transitions_total",
			Help:      "Fulfillment transitions by target status and outcome",
		},
		[]string{"status", "outcome"},
	)
	m.EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Kafka events published",
		},
		[]string{"topic", "status"},
	)
	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StockOperations,
		m.ReservationsExpired,
		m.LowStockEvaluations,
		m.OrderTransitions,
		m.FulfillmentAdvances,
		m.EventsPublished,
		m.CircuitBreakerState,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Outcome turns an operation result into a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperror.KindOf(err)))
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordStockOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.StockOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) RecordReservationsExpired(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ReservationsExpired.Add(float64(n))
}

func (m *Metrics) RecordLowStockEvaluation(action string) {
	if m == nil {
		return
	}
	m.LowStockEvaluations.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordOrderTransition(status string, err error) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(status, Outcome(err)).Inc()
}

func (m *Metrics) RecordFulfillmentTransition(status string, err error) {
	if m == nil {
		return
	}
	m.FulfillmentAdvances.WithLabelValues(status, Outcome(err)).Inc()
}

func (m *Metrics) RecordEventPublished(topic string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.EventsPublished.WithLabelValues(topic, status).Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
