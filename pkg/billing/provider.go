package billing

import "context"

// CreateCustomerParams are the inputs for creating a provider customer. The
// user identifier is attached as provider-side metadata so webhook events can
// be traced back to the application user; the email is attached when present.
type CreateCustomerParams struct {
	UserID string
	Email  string
}

// Provider is the payment provider SDK boundary consumed by the Syncer.
// Implementations translate between the provider's own object shapes and the
// narrow schemas in this package; everything the provider returns beyond the
// projected fields is treated as opaque.
type Provider interface {
	// Name returns the provider name (e.g. "stripe")
	Name() string

	// CreateCustomer creates a customer on the provider and returns the
	// provider's customer identifier.
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (string, error)

	// UpdateCustomerBilling writes billing name, phone and address onto the
	// provider's customer record.
	UpdateCustomerBilling(ctx context.Context, customerID string, details BillingDetails) error

	// GetSubscription re-fetches the current subscription state from the
	// provider, with the default payment method expanded.
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}
