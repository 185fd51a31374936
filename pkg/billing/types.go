package billing

import "time"

// PricingType distinguishes one-off charges from recurring plans.
type PricingType string

const (
	PricingTypeOneTime   PricingType = "one_time"
	PricingTypeRecurring PricingType = "recurring"
)

// Product is the stored projection of a provider product, keyed by the
// provider's product identifier.
type Product struct {
	// ID is the provider's product identifier
	ID string `json:"id"`

	Active bool   `json:"active"`
	Name   string `json:"name"`

	// Description is the provider's product description (nil when unset)
	Description *string `json:"description"`

	// Image is the first product image URL, when the provider carries any
	Image *string `json:"image"`

	Metadata map[string]string `json:"metadata"`
}

// Price is the stored projection of a provider price, keyed by the
// provider's price identifier.
type Price struct {
	// ID is the provider's price identifier
	ID string `json:"id"`

	// ProductID is the owning product's identifier. "" means the provider
	// reference was not a plain identifier and no resolution was attempted.
	ProductID string `json:"product_id"`

	Active   bool   `json:"active"`
	Currency string `json:"currency"`

	// Description carries the provider's price nickname
	Description *string `json:"description"`

	Type       PricingType `json:"type"`
	UnitAmount *int64      `json:"unit_amount"`

	// Recurring plan fields; nil for one-off prices
	Interval        *string `json:"interval"`
	IntervalCount   *int64  `json:"interval_count"`
	TrialPeriodDays *int64  `json:"trial_period_days"`

	Metadata map[string]string `json:"metadata"`
}

// CustomerMapping links an application user to a provider customer. One
// mapping per user; the store enforces uniqueness on UserID.
type CustomerMapping struct {
	UserID     string `json:"user_id"`
	CustomerID string `json:"customer_id"`
}

// Subscription is the stored projection of a provider subscription, keyed by
// the provider's subscription identifier. Timestamps are RFC 3339 strings in
// UTC; optional ones are nil when the provider reports them absent.
type Subscription struct {
	// ID is the provider's subscription identifier
	ID string `json:"id"`

	// UserID is the application user resolved through the customer mapping
	UserID string `json:"user_id"`

	Status   string `json:"status"`
	PriceID  string `json:"price_id"`
	Quantity int64  `json:"quantity"`

	CancelAtPeriodEnd bool    `json:"cancel_at_period_end"`
	CancelAt          *string `json:"cancel_at"`
	CanceledAt        *string `json:"canceled_at"`

	CurrentPeriodStart string `json:"current_period_start"`
	CurrentPeriodEnd   string `json:"current_period_end"`

	Created    string  `json:"created"`
	EndedAt    *string `json:"ended_at"`
	TrialStart *string `json:"trial_start"`
	TrialEnd   *string `json:"trial_end"`

	Metadata map[string]string `json:"metadata"`
}

// Address is a postal address in the provider's field layout.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// BillingDetails is the contact information attached to a payment method.
type BillingDetails struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Address *Address `json:"address"`
}

// PaymentMethod is a provider payment method narrowed to what the billing
// copy needs.
type PaymentMethod struct {
	// ID is the provider's payment method identifier
	ID string `json:"id"`

	// CustomerID is the provider customer the method is attached to
	CustomerID string `json:"customer_id"`

	// Type is the provider's method type ("card", "sepa_debit", ...)
	Type string `json:"type"`

	BillingDetails BillingDetails `json:"billing_details"`

	// Details is the type-keyed detail blob (for a card, the card fields),
	// stored on the user row as-is
	Details map[string]interface{} `json:"details"`
}

// UserBilling is the billing state stored on a user row.
type UserBilling struct {
	Address       Address                `json:"billing_address"`
	PaymentMethod map[string]interface{} `json:"payment_method"`
}

// ProviderSubscription is a subscription as reported by the provider, before
// projection into a stored Subscription. Timestamps are epoch seconds; zero
// means the provider reported the field absent.
type ProviderSubscription struct {
	ID         string
	CustomerID string
	Status     string
	PriceID    string
	Quantity   int64

	CancelAtPeriodEnd bool
	CancelAt          int64
	CanceledAt        int64

	CurrentPeriodStart int64
	CurrentPeriodEnd   int64

	Created    int64
	EndedAt    int64
	TrialStart int64
	TrialEnd   int64

	Metadata map[string]string

	// DefaultPaymentMethod is set when the provider expanded the
	// subscription's default payment method
	DefaultPaymentMethod *PaymentMethod
}

func isoTime(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

func isoTimePtr(sec int64) *string {
	if sec == 0 {
		return nil
	}
	s := isoTime(sec)
	return &s
}
