package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstoican/stripesync/pkg/billing"
	"github.com/mstoican/stripesync/storage/memory"
)

const (
	testUserID     = "user-123"
	testCustomerID = "cus_test_123"
	testEmail      = "jane@example.com"
)

// fakeProvider implements billing.Provider with call tracking.
type fakeProvider struct {
	createCalls int
	updateCalls int
	getCalls    int

	customerID  string
	sub         *billing.ProviderSubscription
	createErr   error
	updateErr   error
	getErr      error
	lastBilling billing.BillingDetails
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateCustomer(ctx context.Context, params billing.CreateCustomerParams) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.customerID, nil
}

func (f *fakeProvider) UpdateCustomerBilling(ctx context.Context, customerID string, details billing.BillingDetails) error {
	f.updateCalls++
	f.lastBilling = details
	return f.updateErr
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.sub, nil
}

func newTestSyncer(t *testing.T, provider billing.Provider) (*billing.Syncer, *memory.Store) {
	t.Helper()
	store := memory.New()
	syncer, err := billing.NewSyncer(billing.Config{
		Store:    store,
		Provider: provider,
	})
	require.NoError(t, err)
	return syncer, store
}

func testProduct() *billing.Product {
	desc := "All the features"
	image := "https://img.example.com/pro.png"
	return &billing.Product{
		ID:          "prod_test_1",
		Active:      true,
		Name:        "Pro Plan",
		Description: &desc,
		Image:       &image,
		Metadata:    map[string]string{"index": "1"},
	}
}

func TestNewSyncer_RequiresStoreAndProvider(t *testing.T) {
	_, err := billing.NewSyncer(billing.Config{Store: memory.New()})
	assert.ErrorIs(t, err, billing.ErrNotConfigured)

	_, err = billing.NewSyncer(billing.Config{Provider: &fakeProvider{}})
	assert.ErrorIs(t, err, billing.ErrNotConfigured)
}

func TestUpsertProduct_Idempotent(t *testing.T) {
	syncer, store := newTestSyncer(t, &fakeProvider{})
	ctx := context.Background()

	product := testProduct()
	require.NoError(t, syncer.UpsertProduct(ctx, product))
	first := store.Product(product.ID)
	require.NotNil(t, first)

	require.NoError(t, syncer.UpsertProduct(ctx, product))
	second := store.Product(product.ID)
	assert.Equal(t, first, second)
}

func TestUpsertPrice_OneTimeHasNoRecurringFields(t *testing.T) {
	syncer, store := newTestSyncer(t, &fakeProvider{})
	ctx := context.Background()

	amount := int64(4900)
	price := &billing.Price{
		ID:         "price_one_time",
		ProductID:  "prod_test_1",
		Active:     true,
		Currency:   "usd",
		Type:       billing.PricingTypeOneTime,
		UnitAmount: &amount,
	}
	require.NoError(t, syncer.UpsertPrice(ctx, price))

	stored := store.Price(price.ID)
	require.NotNil(t, stored)
	assert.Nil(t, stored.Interval)
	assert.Nil(t, stored.IntervalCount)
	assert.Nil(t, stored.TrialPeriodDays)
}

func TestUpsertPrice_DegradedProductReference(t *testing.T) {
	syncer, store := newTestSyncer(t, &fakeProvider{})
	ctx := context.Background()

	price := &billing.Price{
		ID:       "price_no_product",
		Active:   true,
		Currency: "usd",
		Type:     billing.PricingTypeOneTime,
	}
	require.NoError(t, syncer.UpsertPrice(ctx, price))

	stored := store.Price(price.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "", stored.ProductID)
}

func TestCreateOrRetrieveCustomer_CreatesOnce(t *testing.T) {
	provider := &fakeProvider{customerID: testCustomerID}
	syncer, store := newTestSyncer(t, provider)
	ctx := context.Background()

	first, err := syncer.CreateOrRetrieveCustomer(ctx, testUserID, testEmail)
	require.NoError(t, err)
	assert.Equal(t, testCustomerID, first)

	second, err := syncer.CreateOrRetrieveCustomer(ctx, testUserID, testEmail)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, provider.createCalls)
	assert.Equal(t, 1, store.MappingCount())
}

func TestCreateOrRetrieveCustomer_ProviderErrorPropagates(t *testing.T) {
	providerErr := errors.New("provider unavailable")
	provider := &fakeProvider{createErr: providerErr}
	syncer, store := newTestSyncer(t, provider)

	_, err := syncer.CreateOrRetrieveCustomer(context.Background(), testUserID, testEmail)
	assert.ErrorIs(t, err, providerErr)
	assert.Equal(t, 0, store.MappingCount())
}

// raceStore simulates a concurrent invocation winning the mapping insert
// between the lookup and this invocation's insert.
type raceStore struct {
	*memory.Store
	winnerID string
}

func (s *raceStore) InsertCustomer(ctx context.Context, mapping *billing.CustomerMapping) error {
	_ = s.Store.InsertCustomer(ctx, &billing.CustomerMapping{
		UserID:     mapping.UserID,
		CustomerID: s.winnerID,
	})
	return billing.ErrMappingExists
}

func TestCreateOrRetrieveCustomer_LostRaceReturnsWinner(t *testing.T) {
	store := &raceStore{Store: memory.New(), winnerID: "cus_winner"}
	provider := &fakeProvider{customerID: "cus_loser"}
	syncer, err := billing.NewSyncer(billing.Config{Store: store, Provider: provider})
	require.NoError(t, err)

	customerID, err := syncer.CreateOrRetrieveCustomer(context.Background(), testUserID, testEmail)
	require.NoError(t, err)
	assert.Equal(t, "cus_winner", customerID)
	assert.Equal(t, 1, store.MappingCount())
}

func completePaymentMethod() *billing.PaymentMethod {
	return &billing.PaymentMethod{
		ID:         "pm_test_1",
		CustomerID: testCustomerID,
		Type:       "card",
		BillingDetails: billing.BillingDetails{
			Name:  "Jane Doe",
			Phone: "+15550001111",
			Address: &billing.Address{
				Line1:      "1 Main St",
				City:       "Springfield",
				State:      "IL",
				PostalCode: "62701",
				Country:    "US",
			},
		},
		Details: map[string]interface{}{"brand": "visa", "last4": "4242"},
	}
}

func TestCopyBillingDetails_NoopWhenIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*billing.PaymentMethod)
	}{
		{"missing name", func(pm *billing.PaymentMethod) { pm.BillingDetails.Name = "" }},
		{"missing phone", func(pm *billing.PaymentMethod) { pm.BillingDetails.Phone = "" }},
		{"missing address", func(pm *billing.PaymentMethod) { pm.BillingDetails.Address = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{}
			syncer, store := newTestSyncer(t, provider)

			pm := completePaymentMethod()
			tt.mutate(pm)

			require.NoError(t, syncer.CopyBillingDetails(context.Background(), testUserID, pm))
			assert.Equal(t, 0, provider.updateCalls)
			assert.Nil(t, store.UserBilling(testUserID))
		})
	}
}

func TestCopyBillingDetails_CopiesWhenComplete(t *testing.T) {
	provider := &fakeProvider{}
	syncer, store := newTestSyncer(t, provider)

	pm := completePaymentMethod()
	require.NoError(t, syncer.CopyBillingDetails(context.Background(), testUserID, pm))

	assert.Equal(t, 1, provider.updateCalls)
	assert.Equal(t, "Jane Doe", provider.lastBilling.Name)

	stored := store.UserBilling(testUserID)
	require.NotNil(t, stored)
	assert.Equal(t, "1 Main St", stored.Address.Line1)
	assert.Equal(t, "visa", stored.PaymentMethod["brand"])
}

func testProviderSubscription() *billing.ProviderSubscription {
	now := time.Now().Unix()
	return &billing.ProviderSubscription{
		ID:                 "sub_test_1",
		CustomerID:         testCustomerID,
		Status:             "active",
		PriceID:            "price_monthly",
		Quantity:           1,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now + 30*24*3600,
		Created:            now,
		TrialStart:         now,
		TrialEnd:           now + 14*24*3600,
		Metadata:           map[string]string{"plan": "pro"},
	}
}

func TestSyncSubscription_MissingMappingFailsBeforeWrite(t *testing.T) {
	provider := &fakeProvider{sub: testProviderSubscription()}
	syncer, store := newTestSyncer(t, provider)

	err := syncer.SyncSubscription(context.Background(), "sub_test_1", testCustomerID, false)
	assert.ErrorIs(t, err, billing.ErrMappingNotFound)
	assert.Equal(t, 0, provider.getCalls)
	assert.Nil(t, store.Subscription("sub_test_1"))
}

func TestSyncSubscription_TimestampConversion(t *testing.T) {
	provider := &fakeProvider{sub: testProviderSubscription()}
	syncer, store := newTestSyncer(t, provider)
	ctx := context.Background()

	require.NoError(t, store.InsertCustomer(ctx, &billing.CustomerMapping{
		UserID:     testUserID,
		CustomerID: testCustomerID,
	}))

	require.NoError(t, syncer.SyncSubscription(ctx, "sub_test_1", testCustomerID, false))

	stored := store.Subscription("sub_test_1")
	require.NotNil(t, stored)
	assert.Equal(t, testUserID, stored.UserID)

	// Present epoch seconds become RFC3339 strings.
	parsed, err := time.Parse(time.RFC3339, stored.CurrentPeriodStart)
	require.NoError(t, err)
	assert.Equal(t, provider.sub.CurrentPeriodStart, parsed.Unix())

	require.NotNil(t, stored.TrialStart)
	_, err = time.Parse(time.RFC3339, *stored.TrialStart)
	assert.NoError(t, err)

	// Absent optional timestamps stay null.
	assert.Nil(t, stored.CancelAt)
	assert.Nil(t, stored.CanceledAt)
	assert.Nil(t, stored.EndedAt)
}

func TestSyncSubscription_Idempotent(t *testing.T) {
	provider := &fakeProvider{sub: testProviderSubscription()}
	syncer, store := newTestSyncer(t, provider)
	ctx := context.Background()

	require.NoError(t, store.InsertCustomer(ctx, &billing.CustomerMapping{
		UserID:     testUserID,
		CustomerID: testCustomerID,
	}))

	require.NoError(t, syncer.SyncSubscription(ctx, "sub_test_1", testCustomerID, false))
	first := store.Subscription("sub_test_1")

	require.NoError(t, syncer.SyncSubscription(ctx, "sub_test_1", testCustomerID, false))
	second := store.Subscription("sub_test_1")
	assert.Equal(t, first, second)
}

func TestSyncSubscription_CreatedCopiesBillingDetails(t *testing.T) {
	sub := testProviderSubscription()
	sub.DefaultPaymentMethod = completePaymentMethod()
	provider := &fakeProvider{sub: sub}
	syncer, store := newTestSyncer(t, provider)
	ctx := context.Background()

	require.NoError(t, store.InsertCustomer(ctx, &billing.CustomerMapping{
		UserID:     testUserID,
		CustomerID: testCustomerID,
	}))

	require.NoError(t, syncer.SyncSubscription(ctx, "sub_test_1", testCustomerID, true))
	assert.Equal(t, 1, provider.updateCalls)
	require.NotNil(t, store.UserBilling(testUserID))
}

func TestSyncSubscription_UpdateSkipsBillingCopy(t *testing.T) {
	sub := testProviderSubscription()
	sub.DefaultPaymentMethod = completePaymentMethod()
	provider := &fakeProvider{sub: sub}
	syncer, store := newTestSyncer(t, provider)
	ctx := context.Background()

	require.NoError(t, store.InsertCustomer(ctx, &billing.CustomerMapping{
		UserID:     testUserID,
		CustomerID: testCustomerID,
	}))

	require.NoError(t, syncer.SyncSubscription(ctx, "sub_test_1", testCustomerID, false))
	assert.Equal(t, 0, provider.updateCalls)
	assert.Nil(t, store.UserBilling(testUserID))
}

func TestSyncSubscription_ProviderErrorPropagates(t *testing.T) {
	providerErr := errors.New("subscription fetch failed")
	provider := &fakeProvider{getErr: providerErr}
	syncer, store := newTestSyncer(t, provider)
	ctx := context.Background()

	require.NoError(t, store.InsertCustomer(ctx, &billing.CustomerMapping{
		UserID:     testUserID,
		CustomerID: testCustomerID,
	}))

	err := syncer.SyncSubscription(ctx, "sub_test_1", testCustomerID, false)
	assert.ErrorIs(t, err, providerErr)
	assert.Nil(t, store.Subscription("sub_test_1"))
}
