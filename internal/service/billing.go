package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/logicloom/logicloom/internal/billing"
	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
	"github.com/logicloom/logicloom/internal/supabase"
)

// EventDeduper remembers processed webhook event ids.
type EventDeduper interface {
	MarkEventProcessing(ctx context.Context, eventID string) (bool, error)
	ForgetEvent(ctx context.Context, eventID string) error
}

// Webhook outcomes returned by HandleEvent.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
	WebhookFailed    = "failed"
)

// BillingConfig holds BillingService settings.
type BillingConfig struct {
	// AppURL is the public site URL used for return and redirect URLs.
	AppURL string
	// Prices maps plan -> interval -> price id.
	Prices  map[string]map[string]string
	Dedupe  EventDeduper
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// BillingService connects users to the billing provider.
type BillingService struct {
	store    repository.Store
	provider billing.Provider
	appURL   string
	prices   map[string]map[string]string
	dedupe   EventDeduper
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewBillingService creates a new BillingService.
func NewBillingService(store repository.Store, provider billing.Provider, cfg BillingConfig) *BillingService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return &BillingService{
		store:    store,
		provider: provider,
		appURL:   cfg.AppURL,
		prices:   cfg.Prices,
		dedupe:   cfg.Dedupe,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// PortalURL opens a customer portal session for the user's stored billing
// customer, returning to the dashboard. A missing profile or customer id
// returns ErrNoBillingCustomer; provider failures return ErrBillingProvider.
func (s *BillingService) PortalURL(ctx context.Context, userID string) (string, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		s.metrics.IncPortalSession("no_customer")
		return "", fmt.Errorf("%w: %w", ErrNoBillingCustomer, err)
	}

	customerID := profile.BillingCustomerID()
	if customerID == "" {
		s.metrics.IncPortalSession("no_customer")
		return "", ErrNoBillingCustomer
	}

	url, err := s.provider.CreatePortalSession(ctx, customerID, s.appURL+"/dashboard")
	if err != nil {
		s.metrics.IncPortalSession("failed")
		return "", fmt.Errorf("%w: %w", ErrBillingProvider, err)
	}

	s.metrics.IncPortalSession("success")
	return url, nil
}

// CheckoutInput is a plan selection.
type CheckoutInput struct {
	Plan     string `validate:"required,oneof=creator pro agency"`
	Interval string `validate:"required,oneof=monthly annual"`
	// User is the signed-in user or nil for anonymous checkout.
	User *supabase.User `validate:"-"`
}

// Checkout creates a subscription checkout session. For a signed-in user the
// stored billing customer is reused, or created and stored.
func (s *BillingService) Checkout(ctx context.Context, in CheckoutInput) (*billing.CheckoutSession, error) {
	if err := validate.Struct(in); err != nil {
		s.metrics.IncCheckoutSession("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !s.provider.Configured() {
		s.metrics.IncCheckoutSession("not_configured")
		return nil, ErrBillingNotConfigured
	}

	priceID := s.prices[in.Plan][in.Interval]
	if priceID == "" {
		s.metrics.IncCheckoutSession("invalid_plan")
		return nil, ErrInvalidPlan
	}

	metadata := map[string]string{"plan": in.Plan, "interval": in.Interval}

	var customerID string
	if in.User != nil {
		metadata["user_id"] = in.User.ID

		var err error
		customerID, err = s.ensureCustomer(ctx, in.User)
		if err != nil {
			s.metrics.IncCheckoutSession("failed")
			return nil, fmt.Errorf("%w: %w", ErrBillingProvider, err)
		}
	}

	session, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: s.appURL + "/dashboard?success=true&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.appURL + "/pricing?canceled=true",
		Metadata:   metadata,
	})
	if err != nil {
		s.metrics.IncCheckoutSession("failed")
		return nil, fmt.Errorf("%w: %w", ErrBillingProvider, err)
	}

	s.metrics.IncCheckoutSession("success")
	return session, nil
}

func (s *BillingService) ensureCustomer(ctx context.Context, user *supabase.User) (string, error) {
	profile, err := s.store.GetProfile(ctx, user.ID)
	if err == nil {
		if id := profile.BillingCustomerID(); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("checkout_profile_lookup_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", err
	}

	if err := s.store.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
		s.logger.Warn("checkout_customer_not_stored",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return customerID, nil
}

// HandleEvent applies a verified webhook event to the stored profiles and
// returns its outcome. Redeliveries of an event already seen are skipped.
// A failed event is forgotten so the provider's retry processes it again.
func (s *BillingService) HandleEvent(ctx context.Context, ev *billing.Event) (string, error) {
	if s.dedupe != nil && ev.ID != "" {
		first, err := s.dedupe.MarkEventProcessing(ctx, ev.ID)
		switch {
		case err != nil:
			s.logger.Warn("webhook_dedupe_unavailable", slog.String("error", err.Error()))
		case !first:
			s.metrics.IncWebhookEvent(ev.Type, WebhookDuplicate)
			return WebhookDuplicate, nil
		}
	}

	outcome, err := s.dispatch(ctx, ev)
	if err != nil {
		if s.dedupe != nil && ev.ID != "" {
			if ferr := s.dedupe.ForgetEvent(ctx, ev.ID); ferr != nil {
				s.logger.Warn("webhook_forget_failed", slog.String("error", ferr.Error()))
			}
		}
		s.metrics.IncWebhookEvent(ev.Type, WebhookFailed)
		return WebhookFailed, err
	}

	s.metrics.IncWebhookEvent(ev.Type, outcome)
	return outcome, nil
}

func (s *BillingService) dispatch(ctx context.Context, ev *billing.Event) (string, error) {
	switch ev.Type {
	case billing.EventCheckoutCompleted:
		return s.onCheckoutCompleted(ctx, ev)
	case billing.EventSubscriptionUpdated:
		return s.onSubscriptionUpdated(ctx, ev)
	case billing.EventSubscriptionDeleted:
		return s.onSubscriptionDeleted(ctx, ev)
	case billing.EventInvoicePaymentSucceeded:
		return s.onInvoice(ctx, ev, true)
	case billing.EventInvoicePaymentFailed:
		return s.onInvoice(ctx, ev, false)
	default:
		s.logger.Info("webhook_event_unhandled", slog.String("type", ev.Type))
		return WebhookIgnored, nil
	}
}

func (s *BillingService) onCheckoutCompleted(ctx context.Context, ev *billing.Event) (string, error) {
	cs, err := ev.CheckoutSession()
	if err != nil {
		return "", err
	}
	if cs.SubscriptionID == "" {
		return WebhookIgnored, nil
	}

	sub, err := s.provider.GetSubscription(ctx, cs.SubscriptionID)
	if err != nil {
		return "", err
	}
	if sub.UserID == "" {
		return WebhookIgnored, nil
	}

	update := model.SubscriptionUpdate{
		Status:         model.SubscriptionActive,
		Plan:           nonEmpty(sub.Plan),
		Interval:       nonEmpty(sub.Interval),
		SubscriptionID: &sub.ID,
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		update.PeriodEnd = &sub.CurrentPeriodEnd
	}
	if err := s.store.UpdateSubscription(ctx, sub.UserID, update); err != nil {
		return "", fmt.Errorf("store subscription: %w", err)
	}

	s.appendEvent(ctx, sub.UserID, model.EventSubscriptionCreated, map[string]any{
		"plan":            sub.Plan,
		"interval":        sub.Interval,
		"subscription_id": sub.ID,
		"amount":          cs.AmountTotal,
	})
	return WebhookProcessed, nil
}

func (s *BillingService) onSubscriptionUpdated(ctx context.Context, ev *billing.Event) (string, error) {
	sub, err := ev.Subscription()
	if err != nil {
		return "", err
	}
	if sub.UserID == "" {
		return WebhookIgnored, nil
	}

	update := model.SubscriptionUpdate{
		Status:   model.SubscriptionStatus(sub.Status),
		Plan:     nonEmpty(sub.Plan),
		Interval: nonEmpty(sub.Interval),
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		update.PeriodEnd = &sub.CurrentPeriodEnd
	}
	if err := s.store.UpdateSubscription(ctx, sub.UserID, update); err != nil {
		return "", fmt.Errorf("store subscription: %w", err)
	}

	s.appendEvent(ctx, sub.UserID, model.EventSubscriptionUpdated, map[string]any{
		"status": sub.Status,
		"plan":   sub.Plan,
	})
	return WebhookProcessed, nil
}

func (s *BillingService) onSubscriptionDeleted(ctx context.Context, ev *billing.Event) (string, error) {
	sub, err := ev.Subscription()
	if err != nil {
		return "", err
	}
	if sub.UserID == "" {
		return WebhookIgnored, nil
	}

	update := model.SubscriptionUpdate{Status: model.SubscriptionCanceled, Clear: true}
	if err := s.store.UpdateSubscription(ctx, sub.UserID, update); err != nil {
		return "", fmt.Errorf("store subscription: %w", err)
	}

	s.appendEvent(ctx, sub.UserID, model.EventSubscriptionCanceled, map[string]any{
		"subscription_id": sub.ID,
	})
	return WebhookProcessed, nil
}

func (s *BillingService) onInvoice(ctx context.Context, ev *billing.Event, paid bool) (string, error) {
	inv, err := ev.Invoice()
	if err != nil {
		return "", err
	}
	if inv.SubscriptionID == "" {
		return WebhookIgnored, nil
	}

	sub, err := s.provider.GetSubscription(ctx, inv.SubscriptionID)
	if err != nil {
		return "", err
	}
	if sub.UserID == "" {
		return WebhookIgnored, nil
	}

	if paid {
		s.appendEvent(ctx, sub.UserID, model.EventPaymentSucceeded, map[string]any{
			"amount":     inv.AmountPaid,
			"invoice_id": inv.ID,
		})
		return WebhookProcessed, nil
	}

	update := model.SubscriptionUpdate{Status: model.SubscriptionPastDue}
	if err := s.store.UpdateSubscription(ctx, sub.UserID, update); err != nil {
		return "", fmt.Errorf("store subscription: %w", err)
	}
	s.appendEvent(ctx, sub.UserID, model.EventPaymentFailed, map[string]any{
		"amount":     inv.AmountDue,
		"invoice_id": inv.ID,
	})
	return WebhookProcessed, nil
}

// appendEvent writes to the event stream; failures are logged only.
func (s *BillingService) appendEvent(ctx context.Context, userID, eventType string, payload map[string]any) {
	if err := s.store.CreateEvent(ctx, model.NewEvent(userID, eventType, payload)); err != nil {
		s.logger.Warn("event_stream_write_failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
