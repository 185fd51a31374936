package billing

import "context"

// Store is the application data store the reconciliation writes into: five
// relations (products, prices, customers, subscriptions, users), each keyed
// by a primary identifier. Implementations must enforce uniqueness of the
// customer mapping's UserID and report conflicts as ErrMappingExists so
// concurrent lookup-or-create invocations converge on a single row.
type Store interface {
	// UpsertProduct inserts or updates a product row keyed by Product.ID.
	UpsertProduct(ctx context.Context, product *Product) error

	// UpsertPrice inserts or updates a price row keyed by Price.ID.
	UpsertPrice(ctx context.Context, price *Price) error

	// CustomerByUserID returns the mapping for an application user, or
	// ErrMappingNotFound.
	CustomerByUserID(ctx context.Context, userID string) (*CustomerMapping, error)

	// CustomerByProviderID returns the mapping for a provider customer
	// identifier, or ErrMappingNotFound.
	CustomerByProviderID(ctx context.Context, customerID string) (*CustomerMapping, error)

	// InsertCustomer creates a new mapping row. Returns ErrMappingExists
	// when a row for the same UserID is already present.
	InsertCustomer(ctx context.Context, mapping *CustomerMapping) error

	// UpsertSubscription inserts or updates a subscription row keyed by
	// Subscription.ID.
	UpsertSubscription(ctx context.Context, sub *Subscription) error

	// UpdateUserBilling writes the billing address and payment-method detail
	// blob onto the user row.
	UpdateUserBilling(ctx context.Context, userID string, billing *UserBilling) error
}
