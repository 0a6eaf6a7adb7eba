package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	alertsCreated      *prometheus.CounterVec
	pendingTransitions *prometheus.CounterVec
	detectorFailures   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	alertsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_created_total",
		Help: "Alerts stored, by type and severity",
	}, []string{"type", "severity"})

	pendingTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pending_action_transitions_total",
		Help: "Pending action lifecycle events, by action type and outcome",
	}, []string{"type", "status"})

	detectorFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_failures_total",
		Help: "Detector runs that failed and were swallowed",
	}, []string{"detector"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, alertsCreated, pendingTransitions, detectorFailures, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		alertsCreated:      alertsCreated,
		pendingTransitions: pendingTransitions,
		detectorFailures:   detectorFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordAlertCreated counts a stored alert.
func (m *MetricsService) RecordAlertCreated(alertType models.AlertType, severity models.AlertSeverity) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(string(alertType), string(severity)).Inc()
}

// RecordPendingTransition counts a pending action lifecycle event.
func (m *MetricsService) RecordPendingTransition(actionType models.PendingActionType, status string) {
	if m == nil {
		return
	}
	m.pendingTransitions.WithLabelValues(string(actionType), status).Inc()
}

// RecordDetectorFailure counts a swallowed detector failure.
func (m *MetricsService) RecordDetectorFailure(detector string) {
	if m == nil {
		return
	}
	m.detectorFailures.WithLabelValues(detector).Inc()
}
