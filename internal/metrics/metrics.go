package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "impact_portal"

// Metrics holds Prometheus metrics for the portal
type Metrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	GatewayCalls    *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	ReactionToggles *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the portal metrics with reg. A nil reg uses a fresh
// private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GatewayCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "calls_total",
				Help:      "Total number of backend calls",
			},
			[]string{"operation", "outcome"},
		),
		GatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "call_duration_seconds",
				Help:      "Backend call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ReactionToggles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "reaction_toggles_total",
				Help:      "Total number of like and bookmark toggles",
			},
			[]string{"kind", "active"},
		),
		gatherer: reg,
	}
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveGatewayCall records one backend call; it matches client.CallHook
func (m *Metrics) ObserveGatewayCall(op string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GatewayCalls.WithLabelValues(op, outcome).Inc()
	m.GatewayDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveToggle records a reaction flip
func (m *Metrics) ObserveToggle(kind string, active bool) {
	m.ReactionToggles.WithLabelValues(kind, strconv.FormatBool(active)).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
