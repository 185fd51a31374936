// Package memory provides an in-memory implementation of the billing.Store
// interface. This implementation is primarily intended for testing and
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mstoican/stripesync/pkg/billing"
)

// Store implements billing.Store using in-memory maps
type Store struct {
	mu            sync.RWMutex
	products      map[string]*billing.Product
	prices        map[string]*billing.Price
	customers     map[string]*billing.CustomerMapping // keyed by user ID
	subscriptions map[string]*billing.Subscription
	users         map[string]*billing.UserBilling
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		products:      make(map[string]*billing.Product),
		prices:        make(map[string]*billing.Price),
		customers:     make(map[string]*billing.CustomerMapping),
		subscriptions: make(map[string]*billing.Subscription),
		users:         make(map[string]*billing.UserBilling),
	}
}

// UpsertProduct implements billing.Store
func (s *Store) UpsertProduct(ctx context.Context, product *billing.Product) error {
	if product == nil || product.ID == "" {
		return fmt.Errorf("invalid product")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutations
	productCopy := *product
	s.products[product.ID] = &productCopy
	return nil
}

// UpsertPrice implements billing.Store
func (s *Store) UpsertPrice(ctx context.Context, price *billing.Price) error {
	if price == nil || price.ID == "" {
		return fmt.Errorf("invalid price")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	priceCopy := *price
	s.prices[price.ID] = &priceCopy
	return nil
}

// CustomerByUserID implements billing.Store
func (s *Store) CustomerByUserID(ctx context.Context, userID string) (*billing.CustomerMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.customers[userID]
	if !ok {
		return nil, billing.ErrMappingNotFound
	}

	mappingCopy := *mapping
	return &mappingCopy, nil
}

// CustomerByProviderID implements billing.Store
func (s *Store) CustomerByProviderID(ctx context.Context, customerID string) (*billing.CustomerMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mapping := range s.customers {
		if mapping.CustomerID == customerID {
			mappingCopy := *mapping
			return &mappingCopy, nil
		}
	}

	return nil, billing.ErrMappingNotFound
}

// InsertCustomer implements billing.Store. Uniqueness on the user ID is
// enforced the way a relational constraint would be: a second insert for the
// same user reports billing.ErrMappingExists.
func (s *Store) InsertCustomer(ctx context.Context, mapping *billing.CustomerMapping) error {
	if mapping == nil || mapping.UserID == "" {
		return fmt.Errorf("invalid customer mapping")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[mapping.UserID]; ok {
		return billing.ErrMappingExists
	}

	mappingCopy := *mapping
	s.customers[mapping.UserID] = &mappingCopy
	return nil
}

// UpsertSubscription implements billing.Store
func (s *Store) UpsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	if sub == nil || sub.ID == "" {
		return fmt.Errorf("invalid subscription")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subCopy := *sub
	s.subscriptions[sub.ID] = &subCopy
	return nil
}

// UpdateUserBilling implements billing.Store
func (s *Store) UpdateUserBilling(ctx context.Context, userID string, userBilling *billing.UserBilling) error {
	if userID == "" || userBilling == nil {
		return fmt.Errorf("invalid user billing update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	billingCopy := *userBilling
	s.users[userID] = &billingCopy
	return nil
}

// Product returns a stored product copy, or nil (useful for testing).
func (s *Store) Product(id string) *billing.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil
	}
	productCopy := *product
	return &productCopy
}

// Price returns a stored price copy, or nil (useful for testing).
func (s *Store) Price(id string) *billing.Price {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[id]
	if !ok {
		return nil
	}
	priceCopy := *price
	return &priceCopy
}

// Subscription returns a stored subscription copy, or nil (useful for testing).
func (s *Store) Subscription(id string) *billing.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return nil
	}
	subCopy := *sub
	return &subCopy
}

// UserBilling returns a stored user billing copy, or nil (useful for testing).
func (s *Store) UserBilling(userID string) *billing.UserBilling {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userBilling, ok := s.users[userID]
	if !ok {
		return nil
	}
	billingCopy := *userBilling
	return &billingCopy
}

// MappingCount returns the number of stored customer mappings (useful for testing).
func (s *Store) MappingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers)
}

// Clear removes all data (useful for testing)
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[string]*billing.Product)
	s.prices = make(map[string]*billing.Price)
	s.customers = make(map[string]*billing.CustomerMapping)
	s.subscriptions = make(map[string]*billing.Subscription)
	s.users = make(map[string]*billing.UserBilling)
}
