// Package firestore provides a Firestore implementation of the billing.Store
// interface. Documents are keyed by the provider identifiers, which gives
// the same upsert-by-identifier convergence as the relational backends; the
// mapping insert uses Create so a concurrent winner surfaces as
// billing.ErrMappingExists.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mstoican/stripesync/pkg/billing"
)

// Store implements billing.Store using Google Cloud Firestore
type Store struct {
	client                  *firestore.Client
	productsCollection      string
	pricesCollection        string
	customersCollection     string
	subscriptionsCollection string
	usersCollection         string
}

// Config holds Firestore store configuration
type Config struct {
	// ProductsCollection is the collection for product projections.
	// Default: "billing_products"
	ProductsCollection string

	// PricesCollection is the collection for price projections.
	// Default: "billing_prices"
	PricesCollection string

	// CustomersCollection is the collection for customer mappings, keyed by
	// the application user ID. Default: "billing_customers"
	CustomersCollection string

	// SubscriptionsCollection is the collection for subscription
	// projections. Default: "billing_subscriptions"
	SubscriptionsCollection string

	// UsersCollection is the collection holding user billing details.
	// Default: "users"
	UsersCollection string
}

// New creates a new Firestore store
func New(client *firestore.Client, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	if config.ProductsCollection == "" {
		config.ProductsCollection = "billing_products"
	}
	if config.PricesCollection == "" {
		config.PricesCollection = "billing_prices"
	}
	if config.CustomersCollection == "" {
		config.CustomersCollection = "billing_customers"
	}
	if config.SubscriptionsCollection == "" {
		config.SubscriptionsCollection = "billing_subscriptions"
	}
	if config.UsersCollection == "" {
		config.UsersCollection = "users"
	}

	return &Store{
		client:                  client,
		productsCollection:      config.ProductsCollection,
		pricesCollection:        config.PricesCollection,
		customersCollection:     config.CustomersCollection,
		subscriptionsCollection: config.SubscriptionsCollection,
		usersCollection:         config.UsersCollection,
	}, nil
}

// UpsertProduct implements billing.Store
func (s *Store) UpsertProduct(ctx context.Context, product *billing.Product) error {
	if product == nil || product.ID == "" {
		return fmt.Errorf("invalid product")
	}

	data := map[string]interface{}{
		"active":      product.Active,
		"name":        product.Name,
		"description": product.Description,
		"image":       product.Image,
		"metadata":    product.Metadata,
	}

	doc := s.client.Collection(s.productsCollection).Doc(product.ID)
	if _, err := doc.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// UpsertPrice implements billing.Store
func (s *Store) UpsertPrice(ctx context.Context, price *billing.Price) error {
	if price == nil || price.ID == "" {
		return fmt.Errorf("invalid price")
	}

	data := map[string]interface{}{
		"product_id":        price.ProductID,
		"active":            price.Active,
		"currency":          price.Currency,
		"description":       price.Description,
		"type":              string(price.Type),
		"unit_amount":       price.UnitAmount,
		"interval":          price.Interval,
		"interval_count":    price.IntervalCount,
		"trial_period_days": price.TrialPeriodDays,
		"metadata":          price.Metadata,
	}

	doc := s.client.Collection(s.pricesCollection).Doc(price.ID)
	if _, err := doc.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}

	return nil
}

// CustomerByUserID implements billing.Store
func (s *Store) CustomerByUserID(ctx context.Context, userID string) (*billing.CustomerMapping, error) {
	doc := s.client.Collection(s.customersCollection).Doc(userID)
	snap, err := doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, billing.ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to get customer mapping: %w", err)
	}

	if !snap.Exists() {
		return nil, billing.ErrMappingNotFound
	}

	return &billing.CustomerMapping{
		UserID:     userID,
		CustomerID: getString(snap.Data(), "customer_id"),
	}, nil
}

// CustomerByProviderID implements billing.Store
func (s *Store) CustomerByProviderID(ctx context.Context, customerID string) (*billing.CustomerMapping, error) {
	query := s.client.Collection(s.customersCollection).
		Where("customer_id", "==", customerID).
		Limit(1)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query customer mapping: %w", err)
	}
	if len(docs) == 0 {
		return nil, billing.ErrMappingNotFound
	}

	return &billing.CustomerMapping{
		UserID:     docs[0].Ref.ID,
		CustomerID: getString(docs[0].Data(), "customer_id"),
	}, nil
}

// InsertCustomer implements billing.Store. Create fails when the document
// already exists, which maps to billing.ErrMappingExists.
func (s *Store) InsertCustomer(ctx context.Context, mapping *billing.CustomerMapping) error {
	if mapping == nil || mapping.UserID == "" {
		return fmt.Errorf("invalid customer mapping")
	}

	doc := s.client.Collection(s.customersCollection).Doc(mapping.UserID)
	_, err := doc.Create(ctx, map[string]interface{}{
		"customer_id": mapping.CustomerID,
	})
	if status.Code(err) == codes.AlreadyExists {
		return billing.ErrMappingExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert customer mapping: %w", err)
	}

	return nil
}

// UpsertSubscription implements billing.Store
func (s *Store) UpsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	if sub == nil || sub.ID == "" {
		return fmt.Errorf("invalid subscription")
	}

	data := map[string]interface{}{
		"user_id":              sub.UserID,
		"status":               sub.Status,
		"price_id":             sub.PriceID,
		"quantity":             sub.Quantity,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"cancel_at":            sub.CancelAt,
		"canceled_at":          sub.CanceledAt,
		"current_period_start": sub.CurrentPeriodStart,
		"current_period_end":   sub.CurrentPeriodEnd,
		"created":              sub.Created,
		"ended_at":             sub.EndedAt,
		"trial_start":          sub.TrialStart,
		"trial_end":            sub.TrialEnd,
		"metadata":             sub.Metadata,
	}

	doc := s.client.Collection(s.subscriptionsCollection).Doc(sub.ID)
	if _, err := doc.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// UpdateUserBilling implements billing.Store
func (s *Store) UpdateUserBilling(ctx context.Context, userID string, userBilling *billing.UserBilling) error {
	if userID == "" || userBilling == nil {
		return fmt.Errorf("invalid user billing update")
	}

	data := map[string]interface{}{
		"billing_address": map[string]interface{}{
			"line1":       userBilling.Address.Line1,
			"line2":       userBilling.Address.Line2,
			"city":        userBilling.Address.City,
			"state":       userBilling.Address.State,
			"postal_code": userBilling.Address.PostalCode,
			"country":     userBilling.Address.Country,
		},
		"payment_method": userBilling.PaymentMethod,
	}

	doc := s.client.Collection(s.usersCollection).Doc(userID)
	if _, err := doc.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update user billing: %w", err)
	}

	return nil
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
