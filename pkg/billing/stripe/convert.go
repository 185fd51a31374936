package stripe

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v83"

	"github.com/mstoican/stripesync/pkg/billing"
)

// providerSubscription narrows a Stripe subscription to the fields the
// Syncer projects. Since the v83 API, period bounds and quantity live on the
// line items; the single active price is read from the first item, matching
// the stored model.
func providerSubscription(sub *stripe.Subscription) *billing.ProviderSubscription {
	ps := &billing.ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CancelAt:          sub.CancelAt,
		CanceledAt:        sub.CanceledAt,
		Created:           sub.Created,
		EndedAt:           sub.EndedAt,
		TrialStart:        sub.TrialStart,
		TrialEnd:          sub.TrialEnd,
		Metadata:          sub.Metadata,
	}

	if sub.Customer != nil {
		ps.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		ps.Quantity = item.Quantity
		ps.CurrentPeriodStart = item.CurrentPeriodStart
		ps.CurrentPeriodEnd = item.CurrentPeriodEnd
		if item.Price != nil {
			ps.PriceID = item.Price.ID
		}
	}

	if sub.DefaultPaymentMethod != nil {
		ps.DefaultPaymentMethod = paymentMethod(sub.DefaultPaymentMethod)
	}

	return ps
}

// paymentMethod narrows a Stripe payment method to the billing fields and
// the type-keyed detail blob.
func paymentMethod(pm *stripe.PaymentMethod) *billing.PaymentMethod {
	out := &billing.PaymentMethod{
		ID:      pm.ID,
		Type:    string(pm.Type),
		Details: paymentMethodDetails(pm),
	}

	if pm.Customer != nil {
		out.CustomerID = pm.Customer.ID
	}

	if bd := pm.BillingDetails; bd != nil {
		out.BillingDetails.Name = bd.Name
		out.BillingDetails.Phone = bd.Phone
		if bd.Address != nil {
			out.BillingDetails.Address = &billing.Address{
				Line1:      bd.Address.Line1,
				Line2:      bd.Address.Line2,
				City:       bd.Address.City,
				State:      bd.Address.State,
				PostalCode: bd.Address.PostalCode,
				Country:    bd.Address.Country,
			}
		}
	}

	return out
}

// paymentMethodDetails extracts the sub-object matching the payment method's
// own type (for a card method, the card fields) as a generic map. The SDK
// struct is round-tripped through JSON so the blob keeps the provider's wire
// field names.
func paymentMethodDetails(pm *stripe.PaymentMethod) map[string]interface{} {
	raw, err := json.Marshal(pm)
	if err != nil {
		return nil
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}

	details, _ := m[string(pm.Type)].(map[string]interface{})
	return details
}
