// Package prommetrics provides a Prometheus implementation of the
// billing.Metrics interface.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements billing.Metrics using Prometheus.
type Metrics struct {
	syncOpsTotal              *prometheus.CounterVec
	syncOpDuration            *prometheus.HistogramVec
	webhookEventsTotal        *prometheus.CounterVec
	webhookProcessingDuration *prometheus.HistogramVec
	webhookErrorsTotal        *prometheus.CounterVec
	providerCallsTotal        *prometheus.CounterVec
	providerCallDuration      *prometheus.HistogramVec
}

// NewMetrics creates a new Prometheus metrics implementation registered on
// the given registerer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		syncOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "sync_ops_total",
			Help:      "Total number of reconciliation operations.",
		}, []string{"provider", "op", "status"}),

		syncOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "sync_op_duration_seconds",
			Help:      "Duration of reconciliation operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "op"}),

		webhookEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Total number of webhook events received from the provider.",
		}, []string{"provider", "event_type", "status"}),

		webhookProcessingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_processing_duration_seconds",
			Help:      "Duration of webhook processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "event_type"}),

		webhookErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_errors_total",
			Help:      "Total number of webhook processing errors.",
		}, []string{"provider", "error_type"}),

		providerCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "provider_calls_total",
			Help:      "Total number of API calls to the payment provider.",
		}, []string{"provider", "endpoint", "status"}),

		providerCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of API calls to the payment provider in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "endpoint"}),
	}
}

// DefaultMetrics creates a Metrics registered on the default Prometheus
// registerer with the given namespace.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}

func (m *Metrics) RecordSyncOp(provider, op, status string) {
	m.syncOpsTotal.WithLabelValues(provider, op, status).Inc()
}

func (m *Metrics) RecordSyncOpDuration(provider, op string, duration time.Duration) {
	m.syncOpDuration.WithLabelValues(provider, op).Observe(duration.Seconds())
}

func (m *Metrics) RecordWebhookEvent(provider, eventType, status string) {
	m.webhookEventsTotal.WithLabelValues(provider, eventType, status).Inc()
}

func (m *Metrics) RecordWebhookProcessingDuration(provider, eventType string, duration time.Duration) {
	m.webhookProcessingDuration.WithLabelValues(provider, eventType).Observe(duration.Seconds())
}

func (m *Metrics) RecordWebhookError(provider, errorType string) {
	m.webhookErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

func (m *Metrics) RecordProviderCall(provider, endpoint, status string) {
	m.providerCallsTotal.WithLabelValues(provider, endpoint, status).Inc()
}

func (m *Metrics) RecordProviderCallDuration(provider, endpoint string, duration time.Duration) {
	m.providerCallDuration.WithLabelValues(provider, endpoint).Observe(duration.Seconds())
}
