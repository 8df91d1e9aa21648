package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workforce",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests broken down by path, method and status.",
	}, []string{"path", "method", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workforce",
		Subsystem: "http",
		Name:      "latency_seconds",
		Help:      "Latency distribution for HTTP requests.",
		Buckets: []float64{
			0.001, 0.002, 0.005,
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"path", "method"})

	domainErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workforce",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Domain errors returned to clients broken down by code.",
	}, []string{"path", "method", "code"})

	reassignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workforce",
		Subsystem: "supervisor",
		Name:      "reassignments_total",
		Help:      "Supervisor reassignment requests broken down by outcome.",
	}, []string{"outcome"})

	reassignedUsers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "workforce",
		Subsystem: "supervisor",
		Name:      "reassigned_users_total",
		Help:      "Users whose supervisor was changed by committed reassignments.",
	})

	notifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workforce",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Notification deliveries that failed and were skipped.",
	}, []string{"kind"})

	auditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "workforce",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Audit trail writes that failed after the guarded mutation committed.",
	})

	gatewaySessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "workforce",
		Subsystem: "gateway",
		Name:      "sessions",
		Help:      "Currently connected websocket sessions.",
	})
)

// Metrics exposes the service's Prometheus collectors behind the same method
// surface the HTTP middleware and services call. A nil receiver is a no-op so
// wiring stays optional in tests.
type Metrics struct{}

// NewMetrics returns the shared metrics facade. Collectors are registered
// once at package load.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest observes one completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError counts a domain error surfaced to a client.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	domainErrors.WithLabelValues(path, method, code).Inc()
}

// RecordReassignment counts one reassignment request and, when it committed,
// the number of users it touched.
func (m *Metrics) RecordReassignment(outcome string, affected int) {
	if m == nil {
		return
	}
	reassignments.WithLabelValues(outcome).Inc()
	if affected > 0 {
		reassignedUsers.Add(float64(affected))
	}
}

// RecordNotifyFailure counts a skipped notification delivery.
func (m *Metrics) RecordNotifyFailure(kind string) {
	if m == nil {
		return
	}
	notifyFailures.WithLabelValues(kind).Inc()
}

// RecordAuditFailure counts a dropped audit trail write.
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	auditFailures.Inc()
}

// GatewayConnected tracks websocket session lifecycle.
func (m *Metrics) GatewayConnected() {
	if m == nil {
		return
	}
	gatewaySessions.Inc()
}

// GatewayDisconnected is the counterpart of GatewayConnected.
func (m *Metrics) GatewayDisconnected() {
	if m == nil {
		return
	}
	gatewaySessions.Dec()
}
