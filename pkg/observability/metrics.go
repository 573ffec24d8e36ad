package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	PermissionChecksTotal *prometheus.CounterVec

	// Membership lifecycle metrics
	MembershipEventsTotal *prometheus.CounterVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all instruments on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "huddle_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_permission_checks_total",
				Help: "Permission checks by scope and outcome",
			},
			[]string{"scope", "outcome"},
		),
		MembershipEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_membership_events_total",
				Help: "Team membership lifecycle events published",
			},
			[]string{"event"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_storage_operations_total",
				Help: "Storage operations by entity and result",
			},
			[]string{"entity", "operation", "result"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "huddle_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "operation"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionChecksTotal,
		m.MembershipEventsTotal,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
	)

	return m
}

// Handler exposes the private registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePermissionCheck records one permission check outcome.
func (m *Metrics) ObservePermissionCheck(scope string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.PermissionChecksTotal.WithLabelValues(scope, outcome).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveMembershipEvent counts one published lifecycle event. Safe to call
// on a nil receiver so collaborators need no metrics-enabled check.
func (m *Metrics) ObserveMembershipEvent(event string) {
	if m == nil {
		return
	}
	m.MembershipEventsTotal.WithLabelValues(event).Inc()
}

// ObserveStorageOperation records one repository call. Safe to call on a
// nil receiver.
func (m *Metrics) ObserveStorageOperation(entity, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StorageOperationsTotal.WithLabelValues(entity, operation, result).Inc()
	m.StorageOperationDuration.WithLabelValues(entity, operation).Observe(time.Since(start).Seconds())
}
