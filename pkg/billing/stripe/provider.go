// Package stripe implements the billing.Provider boundary on top of the
// Stripe SDK (stripe-go/v83) and exposes the webhook handler that feeds
// provider events into a billing.Syncer.
package stripe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mstoican/stripesync/pkg/billing"
	"github.com/mstoican/stripesync/pkg/billing/internal"
)

const (
	providerName             = "stripe"
	defaultBodyLimit         = 256 * 1024
	defaultRateLimitWindow   = time.Minute
	defaultRateLimitRequests = 100
)

// Config extends billing.Config with Stripe-specific options. The Provider
// field of the embedded config is ignored; the constructed Provider takes
// that role.
type Config struct {
	billing.Config

	// StripeAPIKey authenticates outbound API calls.
	StripeAPIKey string

	// StripeWebhookSecret verifies incoming webhook signatures (whsec_...).
	StripeWebhookSecret string
}

// Provider implements the billing.Provider interface for Stripe and carries
// the webhook dispatcher.
type Provider struct {
	client        *stripe.Client
	syncer        *billing.Syncer
	rateLimiter   *internal.RateLimiter
	webhookSecret []byte
	logger        billing.Logger
	metrics       billing.Metrics
}

// NewProvider creates a new Stripe provider and the Syncer it feeds.
func NewProvider(config Config) (*Provider, error) {
	apiKey := strings.TrimSpace(config.StripeAPIKey)
	if apiKey == "" || config.Store == nil {
		return nil, billing.ErrNotConfigured
	}

	logger := config.Logger
	if logger == nil {
		logger = &billing.NoopLogger{}
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}

	p := &Provider{
		client:        stripe.NewClient(apiKey),
		rateLimiter:   internal.NewRateLimiter(defaultRateLimitRequests, defaultRateLimitWindow),
		webhookSecret: []byte(strings.TrimSpace(config.StripeWebhookSecret)),
		logger:        logger,
		metrics:       metrics,
	}

	syncConfig := config.Config
	syncConfig.Provider = p
	syncConfig.Logger = logger
	syncConfig.Metrics = metrics

	syncer, err := billing.NewSyncer(syncConfig)
	if err != nil {
		return nil, err
	}
	p.syncer = syncer

	return p, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// Syncer returns the reconciliation entry points backed by this provider.
func (p *Provider) Syncer() *billing.Syncer {
	return p.syncer
}

// WebhookHandler returns the HTTP handler for Stripe webhooks, wrapped with
// per-IP rate limiting.
func (p *Provider) WebhookHandler() http.Handler {
	return p.rateLimiter.Middleware(http.HandlerFunc(p.handleWebhook))
}

// CreateCustomer creates a Stripe customer carrying the application user ID
// as metadata, plus the email when present.
func (p *Provider) CreateCustomer(ctx context.Context, params billing.CreateCustomerParams) (string, error) {
	start := time.Now()

	createParams := &stripe.CustomerCreateParams{}
	createParams.AddMetadata("user_id", params.UserID)
	if params.Email != "" {
		createParams.Email = stripe.String(params.Email)
	}

	cust, err := p.client.V1Customers.Create(ctx, createParams)
	if err != nil {
		p.recordCall("/customers", statusError, start)
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	p.recordCall("/customers", statusSuccess, start)
	return cust.ID, nil
}

// UpdateCustomerBilling writes billing name, phone and address onto the
// Stripe customer record.
func (p *Provider) UpdateCustomerBilling(ctx context.Context, customerID string, details billing.BillingDetails) error {
	start := time.Now()

	updateParams := &stripe.CustomerUpdateParams{
		Name:  stripe.String(details.Name),
		Phone: stripe.String(details.Phone),
	}
	if a := details.Address; a != nil {
		updateParams.Address = &stripe.AddressParams{
			Line1:      stripe.String(a.Line1),
			Line2:      stripe.String(a.Line2),
			City:       stripe.String(a.City),
			State:      stripe.String(a.State),
			PostalCode: stripe.String(a.PostalCode),
			Country:    stripe.String(a.Country),
		}
	}

	if _, err := p.client.V1Customers.Update(ctx, customerID, updateParams); err != nil {
		p.recordCall("/customers/update", statusError, start)
		return fmt.Errorf("failed to update customer: %w", err)
	}

	p.recordCall("/customers/update", statusSuccess, start)
	return nil
}

// GetSubscription re-fetches the subscription from Stripe with the default
// payment method expanded, and narrows it to the fields the Syncer projects.
func (p *Provider) GetSubscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	start := time.Now()

	retrieveParams := &stripe.SubscriptionRetrieveParams{}
	retrieveParams.AddExpand("default_payment_method")

	sub, err := p.client.V1Subscriptions.Retrieve(ctx, subscriptionID, retrieveParams)
	if err != nil {
		p.recordCall("/subscriptions/retrieve", statusError, start)
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}

	p.recordCall("/subscriptions/retrieve", statusSuccess, start)
	return providerSubscription(sub), nil
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func (p *Provider) recordCall(endpoint, status string, start time.Time) {
	p.metrics.RecordProviderCall(providerName, endpoint, status)
	p.metrics.RecordProviderCallDuration(providerName, endpoint, time.Since(start))
}
