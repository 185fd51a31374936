package stripe

import (
	"encoding/json"

	"github.com/mstoican/stripesync/pkg/billing"
)

// Narrow schemas for the webhook event payloads this package consumes.
// Exactly the fields projected into the store are decoded; everything else
// in the provider object is ignored.

type productPayload struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
}

func (p *productPayload) record() *billing.Product {
	rec := &billing.Product{
		ID:          p.ID,
		Active:      p.Active,
		Name:        p.Name,
		Description: p.Description,
		Metadata:    p.Metadata,
	}
	if len(p.Images) > 0 {
		image := p.Images[0]
		rec.Image = &image
	}
	return rec
}

type recurringPayload struct {
	Interval        string `json:"interval"`
	IntervalCount   int64  `json:"interval_count"`
	TrialPeriodDays *int64 `json:"trial_period_days"`
}

type pricePayload struct {
	ID         string            `json:"id"`
	Product    json.RawMessage   `json:"product"`
	Active     bool              `json:"active"`
	Currency   string            `json:"currency"`
	Nickname   *string           `json:"nickname"`
	Type       string            `json:"type"`
	UnitAmount *int64            `json:"unit_amount"`
	Recurring  *recurringPayload `json:"recurring"`
	Metadata   map[string]string `json:"metadata"`
}

func (p *pricePayload) record() *billing.Price {
	rec := &billing.Price{
		ID:          p.ID,
		ProductID:   plainID(p.Product),
		Active:      p.Active,
		Currency:    p.Currency,
		Description: p.Nickname,
		Type:        billing.PricingType(p.Type),
		UnitAmount:  p.UnitAmount,
		Metadata:    p.Metadata,
	}

	// Recurring plan fields are projected only for recurring prices.
	if rec.Type == billing.PricingTypeRecurring && p.Recurring != nil {
		interval := p.Recurring.Interval
		intervalCount := p.Recurring.IntervalCount
		rec.Interval = &interval
		rec.IntervalCount = &intervalCount
		rec.TrialPeriodDays = p.Recurring.TrialPeriodDays
	}

	return rec
}

type subscriptionPayload struct {
	ID       string          `json:"id"`
	Customer json.RawMessage `json:"customer"`
}

type checkoutSessionPayload struct {
	ID           string          `json:"id"`
	Mode         string          `json:"mode"`
	Customer     json.RawMessage `json:"customer"`
	Subscription json.RawMessage `json:"subscription"`
}

// plainID returns the reference only when it is a plain JSON string
// identifier; an expanded object or absent field yields "". The price
// payload relies on this to preserve the stored empty-string product
// reference for non-plain references.
func plainID(raw json.RawMessage) string {
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// refID resolves an expandable reference to its identifier: either a plain
// JSON string or an object carrying an "id" field.
func refID(raw json.RawMessage) string {
	if id := plainID(raw); id != "" {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if len(raw) > 0 && raw[0] == '{' && json.Unmarshal(raw, &obj) == nil {
		return obj.ID
	}
	return ""
}
