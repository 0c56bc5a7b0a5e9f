// Package billing wraps the Stripe API calls the site makes: customer portal
// and checkout sessions, customers, subscriptions and webhook verification.
package billing

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured is returned when no secret key is set.
	ErrNotConfigured = errors.New("billing: not configured")
	// ErrWebhookNotConfigured is returned when no webhook signing secret is set.
	ErrWebhookNotConfigured = errors.New("billing: webhook secret not configured")
	// ErrInvalidSignature is returned for payloads that fail verification.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
)

// Provider is the billing API used by the services.
type Provider interface {
	Configured() bool
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

// CheckoutParams describes a subscription checkout.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	// Metadata is copied onto the created subscription.
	Metadata map[string]string
}

// CheckoutSession is a created hosted checkout page.
type CheckoutSession struct {
	ID  string
	URL string
}

// Subscription is the subset of a subscription the site stores.
// UserID, Plan and Interval come from the metadata set at checkout.
type Subscription struct {
	ID               string
	Status           string
	UserID           string
	Plan             string
	Interval         string
	CurrentPeriodEnd time.Time
}

// Event types the webhook handles.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)
