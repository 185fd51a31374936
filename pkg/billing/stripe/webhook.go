package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mstoican/stripesync/pkg/billing"
	"github.com/mstoican/stripesync/pkg/billing/internal"
)

// handleWebhook processes incoming Stripe webhook events. Payloads arrive
// signed; after verification each event type maps onto one Syncer entry
// point. Any reconciliation failure is reported as 500 so Stripe redelivers;
// there is no retry here.
func (p *Provider) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	setSecurityHeaders(w)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if len(p.webhookSecret) == 0 {
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := internal.ReadBodyStrict(w, r, defaultBodyLimit)
	if err != nil {
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			p.metrics.RecordWebhookError(providerName, "payload_too_large")
		} else {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			p.metrics.RecordWebhookError(providerName, "invalid_payload")
		}
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		sig = r.Header.Get("stripe-signature")
	}

	event, err := stripe.ConstructEvent(body, sig, string(p.webhookSecret))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		p.metrics.RecordWebhookError(providerName, "auth_failed")
		return
	}

	eventType := string(event.Type)
	if eventType == "" {
		eventType = "UNKNOWN"
	}

	if err := p.processWebhookEvent(r.Context(), &event); err != nil {
		p.logger.Error("webhook processing failed",
			billing.Field{Key: "event_type", Value: eventType},
			billing.Field{Key: "error", Value: err.Error()})
		http.Error(w, "failed to process webhook", http.StatusInternalServerError)
		p.metrics.RecordWebhookEvent(providerName, eventType, "error")
		p.metrics.RecordWebhookError(providerName, "processing_error")
		p.metrics.RecordWebhookProcessingDuration(providerName, eventType, time.Since(startTime))
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		return
	}

	p.metrics.RecordWebhookEvent(providerName, eventType, "success")
	p.metrics.RecordWebhookProcessingDuration(providerName, eventType, time.Since(startTime))
}

// processWebhookEvent dispatches a verified event to the Syncer.
func (p *Provider) processWebhookEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "product.created", "product.updated":
		return p.handleProductEvent(ctx, event)
	case "price.created", "price.updated":
		return p.handlePriceEvent(ctx, event)
	case "customer.subscription.created":
		return p.handleSubscriptionEvent(ctx, event, true)
	case "customer.subscription.updated", "customer.subscription.deleted":
		return p.handleSubscriptionEvent(ctx, event, false)
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, event)
	default:
		// Unknown event type - acknowledge and ignore
		return nil
	}
}

func (p *Provider) handleProductEvent(ctx context.Context, event *stripe.Event) error {
	var payload productPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("%w: product: %v", billing.ErrInvalidWebhookPayload, err)
	}
	return p.syncer.UpsertProduct(ctx, payload.record())
}

func (p *Provider) handlePriceEvent(ctx context.Context, event *stripe.Event) error {
	var payload pricePayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("%w: price: %v", billing.ErrInvalidWebhookPayload, err)
	}
	return p.syncer.UpsertPrice(ctx, payload.record())
}

func (p *Provider) handleSubscriptionEvent(ctx context.Context, event *stripe.Event, created bool) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("%w: subscription: %v", billing.ErrInvalidWebhookPayload, err)
	}

	customerID := refID(payload.Customer)
	if payload.ID == "" || customerID == "" {
		return fmt.Errorf("%w: subscription event missing id or customer", billing.ErrInvalidWebhookPayload)
	}

	return p.syncer.SyncSubscription(ctx, payload.ID, customerID, created)
}

// handleCheckoutCompleted treats a completed subscription checkout as a
// creation event so the first reconciliation also copies billing details.
func (p *Provider) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var payload checkoutSessionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("%w: checkout session: %v", billing.ErrInvalidWebhookPayload, err)
	}

	if payload.Mode != "subscription" {
		// One-time payment checkout - nothing to reconcile
		return nil
	}

	subscriptionID := refID(payload.Subscription)
	customerID := refID(payload.Customer)
	if subscriptionID == "" || customerID == "" {
		return fmt.Errorf("%w: checkout session %s missing subscription or customer", billing.ErrInvalidWebhookPayload, payload.ID)
	}

	return p.syncer.SyncSubscription(ctx, subscriptionID, customerID, true)
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
