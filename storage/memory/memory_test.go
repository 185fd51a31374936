package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstoican/stripesync/pkg/billing"
)

func TestUpsertProduct(t *testing.T) {
	store := New()
	ctx := context.Background()

	product := &billing.Product{ID: "prod_1", Active: true, Name: "Basic"}
	require.NoError(t, store.UpsertProduct(ctx, product))

	stored := store.Product("prod_1")
	require.NotNil(t, stored)
	assert.Equal(t, "Basic", stored.Name)

	// Mutating the input must not affect the stored copy.
	product.Name = "Changed"
	assert.Equal(t, "Basic", store.Product("prod_1").Name)

	// Upsert replaces the row.
	require.NoError(t, store.UpsertProduct(ctx, &billing.Product{ID: "prod_1", Name: "Renamed"}))
	assert.Equal(t, "Renamed", store.Product("prod_1").Name)
}

func TestUpsertProduct_Invalid(t *testing.T) {
	store := New()
	assert.Error(t, store.UpsertProduct(context.Background(), nil))
	assert.Error(t, store.UpsertProduct(context.Background(), &billing.Product{}))
}

func TestUpsertPrice(t *testing.T) {
	store := New()
	ctx := context.Background()

	price := &billing.Price{ID: "price_1", Currency: "usd", Type: billing.PricingTypeOneTime}
	require.NoError(t, store.UpsertPrice(ctx, price))
	require.NotNil(t, store.Price("price_1"))
	assert.Nil(t, store.Price("missing"))
}

func TestCustomerMapping(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.CustomerByUserID(ctx, "user-1")
	assert.ErrorIs(t, err, billing.ErrMappingNotFound)

	mapping := &billing.CustomerMapping{UserID: "user-1", CustomerID: "cus_1"}
	require.NoError(t, store.InsertCustomer(ctx, mapping))

	byUser, err := store.CustomerByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", byUser.CustomerID)

	byProvider, err := store.CustomerByProviderID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byProvider.UserID)

	_, err = store.CustomerByProviderID(ctx, "cus_unknown")
	assert.ErrorIs(t, err, billing.ErrMappingNotFound)
}

func TestInsertCustomer_Duplicate(t *testing.T) {
	store := New()
	ctx := context.Background()

	mapping := &billing.CustomerMapping{UserID: "user-1", CustomerID: "cus_1"}
	require.NoError(t, store.InsertCustomer(ctx, mapping))

	err := store.InsertCustomer(ctx, &billing.CustomerMapping{UserID: "user-1", CustomerID: "cus_2"})
	assert.ErrorIs(t, err, billing.ErrMappingExists)

	// The original mapping survives.
	byUser, err := store.CustomerByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", byUser.CustomerID)
	assert.Equal(t, 1, store.MappingCount())
}

func TestUpsertSubscription(t *testing.T) {
	store := New()
	ctx := context.Background()

	sub := &billing.Subscription{
		ID:                 "sub_1",
		UserID:             "user-1",
		Status:             "active",
		CurrentPeriodStart: "2026-01-01T00:00:00Z",
		CurrentPeriodEnd:   "2026-02-01T00:00:00Z",
		Created:            "2026-01-01T00:00:00Z",
	}
	require.NoError(t, store.UpsertSubscription(ctx, sub))

	stored := store.Subscription("sub_1")
	require.NotNil(t, stored)
	assert.Equal(t, "active", stored.Status)

	sub.Status = "canceled"
	require.NoError(t, store.UpsertSubscription(ctx, sub))
	assert.Equal(t, "canceled", store.Subscription("sub_1").Status)
}

func TestUpdateUserBilling(t *testing.T) {
	store := New()
	ctx := context.Background()

	userBilling := &billing.UserBilling{
		Address:       billing.Address{Line1: "1 Main St", Country: "US"},
		PaymentMethod: map[string]interface{}{"brand": "visa"},
	}
	require.NoError(t, store.UpdateUserBilling(ctx, "user-1", userBilling))

	stored := store.UserBilling("user-1")
	require.NotNil(t, stored)
	assert.Equal(t, "1 Main St", stored.Address.Line1)

	assert.Error(t, store.UpdateUserBilling(ctx, "", userBilling))
	assert.Error(t, store.UpdateUserBilling(ctx, "user-1", nil))
}

func TestClear(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.UpsertProduct(ctx, &billing.Product{ID: "prod_1", Name: "Basic"}))
	require.NoError(t, store.InsertCustomer(ctx, &billing.CustomerMapping{UserID: "user-1", CustomerID: "cus_1"}))

	store.Clear()

	assert.Nil(t, store.Product("prod_1"))
	assert.Equal(t, 0, store.MappingCount())
}
