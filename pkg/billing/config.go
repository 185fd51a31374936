package billing

// Config defines the standard configuration a Syncer is built from. Store
// and Provider are required; both are injected explicitly so invocations
// share one configured client each without module-level state, and so tests
// can substitute doubles.
type Config struct {
	// Store is the application data store the provider state is projected
	// into.
	Store Store

	// Provider is the payment provider SDK boundary.
	Provider Provider

	// Logger is an optional structured logger. If nil, logging is silently
	// ignored (no-op).
	Logger Logger

	// Metrics is an optional metrics collector for reconciliation
	// operations. If nil, metrics are silently ignored (no-op).
	// Use billing/metrics/prometheus.DefaultMetrics(namespace) for
	// Prometheus metrics.
	Metrics Metrics
}
