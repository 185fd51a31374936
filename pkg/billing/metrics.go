package billing

import "time"

// Metrics defines the interface for tracking reconciliation operations.
// All methods are optional - components should gracefully handle nil metrics
// by substituting NoopMetrics.
type Metrics interface {
	// RecordSyncOp records a reconciliation operation.
	// op: the operation ("upsert_product", "upsert_price", "customer_create",
	// "billing_copy", "subscription_sync")
	// status: "success" or "error"
	RecordSyncOp(provider, op, status string)

	// RecordSyncOpDuration records how long a reconciliation operation took.
	RecordSyncOpDuration(provider, op string, duration time.Duration)

	// RecordWebhookEvent records a webhook event received from the provider.
	// status: "success" or "error"
	RecordWebhookEvent(provider, eventType, status string)

	// RecordWebhookProcessingDuration records how long it took to process a webhook.
	RecordWebhookProcessingDuration(provider, eventType string, duration time.Duration)

	// RecordWebhookError records a webhook processing error.
	// errorType: the type of error (e.g. "auth_failed", "invalid_payload",
	// "processing_error")
	RecordWebhookError(provider, errorType string)

	// RecordProviderCall records an outbound API call to the provider.
	// endpoint: the API endpoint called (e.g. "/customers")
	// status: "success" or "error"
	RecordProviderCall(provider, endpoint, status string)

	// RecordProviderCallDuration records how long a provider API call took.
	RecordProviderCallDuration(provider, endpoint string, duration time.Duration)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordSyncOp(_, _, _ string)                                  {}
func (n *NoopMetrics) RecordSyncOpDuration(_, _ string, _ time.Duration)            {}
func (n *NoopMetrics) RecordWebhookEvent(_, _, _ string)                            {}
func (n *NoopMetrics) RecordWebhookProcessingDuration(_, _ string, _ time.Duration) {}
func (n *NoopMetrics) RecordWebhookError(_, _ string)                               {}
func (n *NoopMetrics) RecordProviderCall(_, _, _ string)                            {}
func (n *NoopMetrics) RecordProviderCallDuration(_, _ string, _ time.Duration)      {}
