package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Config configures the Stripe provider.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// Backends overrides the API endpoints (tests).
	Backends *stripe.Backends
}

// Stripe is a Provider backed by the Stripe API. A Stripe with no secret key
// is valid; its API calls return ErrNotConfigured.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

// NewStripe creates a Stripe provider.
func NewStripe(cfg Config) *Stripe {
	s := &Stripe{webhookSecret: cfg.WebhookSecret}
	if cfg.SecretKey != "" {
		s.api = client.New(cfg.SecretKey, cfg.Backends)
	}
	return s
}

// Configured reports whether a secret key is set.
func (s *Stripe) Configured() bool {
	return s.api != nil
}

// CreatePortalSession opens a customer portal session and returns its URL.
func (s *Stripe) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if s.api == nil {
		return "", ErrNotConfigured
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create portal session: %w", err)
	}
	return session.URL, nil
}

// CreateCustomer creates a customer linked to a hosted auth user.
func (s *Stripe) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	if s.api == nil {
		return "", ErrNotConfigured
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.AddMetadata("supabase_user_id", userID)
	params.Context = ctx

	customer, err := s.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create customer: %w", err)
	}
	return customer.ID, nil
}

// CreateCheckoutSession creates a subscription-mode checkout session.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:          stripe.String(p.SuccessURL),
		CancelURL:           stripe.String(p.CancelURL),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		},
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	params.Context = ctx

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create checkout session: %w", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// GetSubscription retrieves a subscription by id.
func (s *Stripe) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := s.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("billing: get subscription: %w", err)
	}
	return fromStripeSubscription(sub), nil
}

// ConstructEvent verifies the Stripe-Signature header against the webhook
// secret and decodes the event.
func (s *Stripe) ConstructEvent(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, ErrWebhookNotConfigured
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		out.Object = ev.Data.Raw
	}
	return out, nil
}

func fromStripeSubscription(s *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:     s.ID,
		Status: string(s.Status),
	}
	if s.Metadata != nil {
		out.UserID = s.Metadata["user_id"]
		out.Plan = s.Metadata["plan"]
		out.Interval = s.Metadata["interval"]
	}
	if s.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	return out
}
