package billing

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// Event is a verified webhook event. Object holds the raw data.object.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// CheckoutCompleted is the data of a checkout.session.completed event.
type CheckoutCompleted struct {
	SessionID      string
	SubscriptionID string
	AmountTotal    int64
}

// Invoice is the data of an invoice.* event.
type Invoice struct {
	ID             string
	SubscriptionID string
	AmountPaid     int64
	AmountDue      int64
}

// CheckoutSession decodes a checkout.session.* event.
func (e *Event) CheckoutSession() (*CheckoutCompleted, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(e.Object, &s); err != nil {
		return nil, fmt.Errorf("billing: decode checkout session: %w", err)
	}
	out := &CheckoutCompleted{SessionID: s.ID, AmountTotal: s.AmountTotal}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	return out, nil
}

// Subscription decodes a customer.subscription.* event.
func (e *Event) Subscription() (*Subscription, error) {
	var s stripe.Subscription
	if err := json.Unmarshal(e.Object, &s); err != nil {
		return nil, fmt.Errorf("billing: decode subscription: %w", err)
	}
	return fromStripeSubscription(&s), nil
}

// Invoice decodes an invoice.* event.
func (e *Event) Invoice() (*Invoice, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(e.Object, &inv); err != nil {
		return nil, fmt.Errorf("billing: decode invoice: %w", err)
	}
	out := &Invoice{ID: inv.ID, AmountPaid: inv.AmountPaid, AmountDue: inv.AmountDue}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out, nil
}
