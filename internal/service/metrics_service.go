package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the reminder scheduling core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	remindersFired  *prometheus.CounterVec
	channelFailures *prometheus.CounterVec
	reconciliations prometheus.Counter
	pendingTimers   prometheus.Gauge
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

	remindersFired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminders_fired_total",
		Help: "Total reminder dispatches by phase",
	}, []string{"phase"})

	channelFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_channel_failures_total",
		Help: "Total per-channel notification delivery failures",
	}, []string{"channel"})

	reconciliations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_reconciliations_total",
		Help: "Total reminder timer reconciliation runs",
	})

	pendingTimers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reminder_timers_pending",
		Help: "Number of currently armed reminder timers",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, remindersFired, channelFailures, reconciliations, pendingTimers, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		remindersFired:  remindersFired,
		channelFailures: channelFailures,
		reconciliations: reconciliations,
		pendingTimers:   pendingTimers,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordReminderFired counts a dispatched reminder by phase.
func (m *MetricsService) RecordReminderFired(phase string) {
	if m == nil {
		return
	}
	m.remindersFired.WithLabelValues(phase).Inc()
}

// RecordChannelFailure counts a failed delivery attempt for a channel.
func (m *MetricsService) RecordChannelFailure(channel string) {
	if m == nil {
		return
	}
	m.channelFailures.WithLabelValues(channel).Inc()
}

// RecordReconciliation counts a reconciliation run and updates the pending
// timer gauge.
func (m *MetricsService) RecordReconciliation(pending int) {
	if m == nil {
		return
	}
	m.reconciliations.Inc()
	m.pendingTimers.Set(float64(pending))
}
