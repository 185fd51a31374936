package billing

import (
	"context"
	"errors"
	"time"
)

// Operation labels used for metrics.
const (
	opUpsertProduct    = "upsert_product"
	opUpsertPrice      = "upsert_price"
	opCustomerCreate   = "customer_create"
	opBillingCopy      = "billing_copy"
	opSubscriptionSync = "subscription_sync"

	statusSuccess = "success"
	statusError   = "error"
)

// Syncer implements the reconciliation procedures: stateless translations of
// provider objects into store rows, invoked independently per provider event.
// Convergence relies on upsert-by-identifier semantics at the store; there is
// no retry, no compensation and no cross-invocation coordination. Failures
// are returned to the caller, which owns redelivery.
type Syncer struct {
	store    Store
	provider Provider
	logger   Logger
	metrics  Metrics
}

// NewSyncer creates a Syncer from the given configuration. Store and
// Provider are required.
func NewSyncer(config Config) (*Syncer, error) {
	if config.Store == nil || config.Provider == nil {
		return nil, ErrNotConfigured
	}

	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &NoopMetrics{}
	}

	return &Syncer{
		store:    config.Store,
		provider: config.Provider,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// UpsertProduct projects a provider product into the store, keyed by the
// provider's product ID. Idempotent; store errors are returned unmodified.
func (s *Syncer) UpsertProduct(ctx context.Context, product *Product) error {
	start := time.Now()
	if err := s.store.UpsertProduct(ctx, product); err != nil {
		s.recordOp(opUpsertProduct, statusError, start)
		return err
	}

	s.logger.Info("product inserted/updated", Field{Key: "product_id", Value: product.ID})
	s.recordOp(opUpsertProduct, statusSuccess, start)
	return nil
}

// UpsertPrice projects a provider price into the store, keyed by the
// provider's price ID. A ProductID of "" indicates the provider reference
// was not a plain identifier; the value is stored as-is.
func (s *Syncer) UpsertPrice(ctx context.Context, price *Price) error {
	start := time.Now()
	if err := s.store.UpsertPrice(ctx, price); err != nil {
		s.recordOp(opUpsertPrice, statusError, start)
		return err
	}

	s.logger.Info("price inserted/updated", Field{Key: "price_id", Value: price.ID})
	s.recordOp(opUpsertPrice, statusSuccess, start)
	return nil
}

// CreateOrRetrieveCustomer returns the provider customer ID mapped to the
// given user, creating the provider customer and the mapping row on first
// need. When a concurrent invocation wins the insert (the store reports
// ErrMappingExists), the existing mapping is re-read and returned.
func (s *Syncer) CreateOrRetrieveCustomer(ctx context.Context, userID, email string) (string, error) {
	start := time.Now()

	mapping, err := s.store.CustomerByUserID(ctx, userID)
	if err != nil && !errors.Is(err, ErrMappingNotFound) {
		s.recordOp(opCustomerCreate, statusError, start)
		return "", err
	}
	if mapping != nil && mapping.CustomerID != "" {
		s.recordOp(opCustomerCreate, statusSuccess, start)
		return mapping.CustomerID, nil
	}

	customerID, err := s.provider.CreateCustomer(ctx, CreateCustomerParams{
		UserID: userID,
		Email:  email,
	})
	if err != nil {
		s.recordOp(opCustomerCreate, statusError, start)
		return "", err
	}

	err = s.store.InsertCustomer(ctx, &CustomerMapping{UserID: userID, CustomerID: customerID})
	if errors.Is(err, ErrMappingExists) {
		// Someone else created the mapping between our lookup and insert.
		existing, rerr := s.store.CustomerByUserID(ctx, userID)
		if rerr != nil {
			s.recordOp(opCustomerCreate, statusError, start)
			return "", rerr
		}
		s.logger.Warn("lost customer mapping race, using existing mapping",
			Field{Key: "user_id", Value: userID},
			Field{Key: "customer_id", Value: existing.CustomerID})
		s.recordOp(opCustomerCreate, statusSuccess, start)
		return existing.CustomerID, nil
	}
	if err != nil {
		s.recordOp(opCustomerCreate, statusError, start)
		return "", err
	}

	s.logger.Info("new customer created and inserted",
		Field{Key: "user_id", Value: userID},
		Field{Key: "customer_id", Value: customerID})
	s.recordOp(opCustomerCreate, statusSuccess, start)
	return customerID, nil
}

// CopyBillingDetails copies a payment method's billing name, phone and
// address onto the provider customer record and the user row. A no-op unless
// all three fields are present. The provider update runs first; a store
// failure afterwards leaves the two systems inconsistent until the event is
// redelivered.
func (s *Syncer) CopyBillingDetails(ctx context.Context, userID string, pm *PaymentMethod) error {
	if pm == nil {
		return nil
	}

	details := pm.BillingDetails
	if details.Name == "" || details.Phone == "" || details.Address == nil {
		return nil
	}

	start := time.Now()
	if err := s.provider.UpdateCustomerBilling(ctx, pm.CustomerID, details); err != nil {
		s.recordOp(opBillingCopy, statusError, start)
		return err
	}

	billing := &UserBilling{
		Address:       *details.Address,
		PaymentMethod: pm.Details,
	}
	if err := s.store.UpdateUserBilling(ctx, userID, billing); err != nil {
		s.recordOp(opBillingCopy, statusError, start)
		return err
	}

	s.recordOp(opBillingCopy, statusSuccess, start)
	return nil
}

// SyncSubscription reconciles a subscription's stored row with the
// provider's current state. The user is resolved through the customer
// mapping; the subscription is re-fetched from the provider rather than
// trusting the event payload, which makes repeated delivery of the same
// event converge. When the call originates from a creation event and the
// subscription carries a default payment method, billing details are copied
// to the user.
func (s *Syncer) SyncSubscription(ctx context.Context, subscriptionID, customerID string, created bool) error {
	start := time.Now()

	mapping, err := s.store.CustomerByProviderID(ctx, customerID)
	if err != nil {
		s.recordOp(opSubscriptionSync, statusError, start)
		return err
	}

	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		s.recordOp(opSubscriptionSync, statusError, start)
		return err
	}

	record := &Subscription{
		ID:                 sub.ID,
		UserID:             mapping.UserID,
		Status:             sub.Status,
		PriceID:            sub.PriceID,
		Quantity:           sub.Quantity,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CancelAt:           isoTimePtr(sub.CancelAt),
		CanceledAt:         isoTimePtr(sub.CanceledAt),
		CurrentPeriodStart: isoTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   isoTime(sub.CurrentPeriodEnd),
		Created:            isoTime(sub.Created),
		EndedAt:            isoTimePtr(sub.EndedAt),
		TrialStart:         isoTimePtr(sub.TrialStart),
		TrialEnd:           isoTimePtr(sub.TrialEnd),
		Metadata:           sub.Metadata,
	}

	if err := s.store.UpsertSubscription(ctx, record); err != nil {
		s.recordOp(opSubscriptionSync, statusError, start)
		return err
	}

	s.logger.Info("subscription inserted/updated",
		Field{Key: "subscription_id", Value: sub.ID},
		Field{Key: "user_id", Value: mapping.UserID})

	if created && sub.DefaultPaymentMethod != nil {
		if err := s.CopyBillingDetails(ctx, mapping.UserID, sub.DefaultPaymentMethod); err != nil {
			s.recordOp(opSubscriptionSync, statusError, start)
			return err
		}
	}

	s.recordOp(opSubscriptionSync, statusSuccess, start)
	return nil
}

func (s *Syncer) recordOp(op, status string, start time.Time) {
	provider := s.provider.Name()
	s.metrics.RecordSyncOp(provider, op, status)
	s.metrics.RecordSyncOpDuration(provider, op, time.Since(start))
}
