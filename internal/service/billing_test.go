package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/logicloom/logicloom/internal/billing"
	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
	"github.com/logicloom/logicloom/internal/supabase"
	"github.com/logicloom/logicloom/internal/testutil"
)

const testAppURL = "https://app.example.test"

var testPrices = map[string]map[string]string{
	"creator": {"monthly": "price_creator_m", "annual": "price_creator_y"},
	"pro":     {"monthly": "price_pro_m"},
}

func newBillingTest(t *testing.T) (*BillingService, *testutil.MemoryStore, *testutil.FakeBilling, *metrics.InMemoryRecorder) {
	t.Helper()
	store := testutil.NewMemoryStore()
	provider := testutil.NewFakeBilling()
	rec := metrics.NewInMemory()
	svc := NewBillingService(store, provider, BillingConfig{
		AppURL:  testAppURL,
		Prices:  testPrices,
		Dedupe:  testutil.NewFakeDeduper(),
		Metrics: rec,
	})
	return svc, store, provider, rec
}

func TestPortalURL(t *testing.T) {
	t.Parallel()

	svc, store, provider, rec := newBillingTest(t)
	profile := testutil.NewTestProfile("jane")
	profile.StripeCustomerID = testutil.Ptr("cus_42")
	store.AddProfile(profile)

	url, err := svc.PortalURL(context.Background(), profile.ID)
	if err != nil {
		t.Fatalf("PortalURL() error = %v", err)
	}
	if url != provider.PortalURL {
		t.Errorf("url = %q, want %q", url, provider.PortalURL)
	}
	if len(provider.PortalCalls) != 1 {
		t.Fatalf("portal calls = %d, want 1", len(provider.PortalCalls))
	}
	call := provider.PortalCalls[0]
	if call.CustomerID != "cus_42" || call.ReturnURL != testAppURL+"/dashboard" {
		t.Errorf("portal call = %+v", call)
	}
	if got := rec.Count("portal_sessions", "success"); got != 1 {
		t.Errorf("success count = %d, want 1", got)
	}
}

func TestPortalURLNoCustomer(t *testing.T) {
	t.Parallel()

	svc, store, provider, _ := newBillingTest(t)
	profile := testutil.NewTestProfile("nocustomer")
	store.AddProfile(profile)

	tests := []struct {
		name   string
		userID string
	}{
		{"missing_profile", "unknown-user"},
		{"no_customer_id", profile.ID},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.PortalURL(context.Background(), test.userID)
			if !errors.Is(err, ErrNoBillingCustomer) {
				t.Fatalf("expected %v, got %v", ErrNoBillingCustomer, err)
			}
		})
	}
	if len(provider.PortalCalls) != 0 {
		t.Errorf("portal calls = %d, want 0", len(provider.PortalCalls))
	}
}

func TestPortalURLProviderError(t *testing.T) {
	t.Parallel()

	svc, store, provider, _ := newBillingTest(t)
	provider.PortalErr = errors.New("stripe down")
	profile := testutil.NewTestProfile("jane")
	profile.StripeCustomerID = testutil.Ptr("cus_1")
	store.AddProfile(profile)

	_, err := svc.PortalURL(context.Background(), profile.ID)
	if !errors.Is(err, ErrBillingProvider) {
		t.Fatalf("expected %v, got %v", ErrBillingProvider, err)
	}
}

func TestCheckoutAnonymous(t *testing.T) {
	t.Parallel()

	svc, _, provider, _ := newBillingTest(t)

	session, err := svc.Checkout(context.Background(), CheckoutInput{Plan: "creator", Interval: "annual"})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if session.URL == "" {
		t.Error("session URL is empty")
	}

	params := provider.CheckoutCalls[0]
	if params.PriceID != "price_creator_y" {
		t.Errorf("PriceID = %q, want price_creator_y", params.PriceID)
	}
	if params.CustomerID != "" {
		t.Errorf("CustomerID = %q, want empty", params.CustomerID)
	}
	if params.SuccessURL != testAppURL+"/dashboard?success=true&session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("SuccessURL = %q", params.SuccessURL)
	}
	if params.CancelURL != testAppURL+"/pricing?canceled=true" {
		t.Errorf("CancelURL = %q", params.CancelURL)
	}
	if _, ok := params.Metadata["user_id"]; ok {
		t.Error("anonymous checkout carries user_id metadata")
	}
}

func TestCheckoutCreatesAndStoresCustomer(t *testing.T) {
	t.Parallel()

	svc, store, provider, _ := newBillingTest(t)
	profile := testutil.NewTestProfile("jane")
	store.AddProfile(profile)
	user := testutil.NewTestUser(profile)

	for i := 0; i < 2; i++ {
		if _, err := svc.Checkout(context.Background(), CheckoutInput{Plan: "pro", Interval: "monthly", User: user}); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
	}

	if len(provider.CustomersMade) != 1 {
		t.Errorf("customers created = %d, want 1", len(provider.CustomersMade))
	}
	stored, _ := store.GetProfile(context.Background(), profile.ID)
	if stored.BillingCustomerID() != "cus_1" {
		t.Errorf("stored customer = %q, want cus_1", stored.BillingCustomerID())
	}
	for _, call := range provider.CheckoutCalls {
		if call.CustomerID != "cus_1" {
			t.Errorf("CustomerID = %q, want cus_1", call.CustomerID)
		}
		if call.Metadata["user_id"] != profile.ID || call.Metadata["plan"] != "pro" || call.Metadata["interval"] != "monthly" {
			t.Errorf("Metadata = %v", call.Metadata)
		}
	}
}

func TestCheckoutErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    CheckoutInput
		disabled bool
		wantErr  error
	}{
		{"unknown_plan", CheckoutInput{Plan: "gold", Interval: "monthly"}, false, ErrInvalidInput},
		{"unknown_interval", CheckoutInput{Plan: "pro", Interval: "weekly"}, false, ErrInvalidInput},
		{"missing_price", CheckoutInput{Plan: "agency", Interval: "monthly"}, false, ErrInvalidPlan},
		{"missing_interval_price", CheckoutInput{Plan: "pro", Interval: "annual"}, false, ErrInvalidPlan},
		{"not_configured", CheckoutInput{Plan: "pro", Interval: "monthly"}, true, ErrBillingNotConfigured},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			svc, _, provider, _ := newBillingTest(t)
			provider.Disabled = test.disabled

			_, err := svc.Checkout(context.Background(), test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
			if len(provider.CheckoutCalls) != 0 {
				t.Errorf("checkout calls = %d, want 0", len(provider.CheckoutCalls))
			}
		})
	}
}

func TestCheckoutProviderError(t *testing.T) {
	t.Parallel()

	svc, _, provider, rec := newBillingTest(t)
	provider.CheckoutErr = errors.New("card_declined")

	_, err := svc.Checkout(context.Background(), CheckoutInput{Plan: "creator", Interval: "monthly"})
	if !errors.Is(err, ErrBillingProvider) {
		t.Fatalf("expected %v, got %v", ErrBillingProvider, err)
	}
	if got := rec.Count("checkout_sessions", "failed"); got != 1 {
		t.Errorf("failed count = %d, want 1", got)
	}
}

func event(t *testing.T, id, eventType string, object any) *billing.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal event object: %v", err)
	}
	return &billing.Event{ID: id, Type: eventType, Object: raw}
}

func subscriptionObject(id, status, userID string) map[string]any {
	return map[string]any{
		"id":                 id,
		"object":             "subscription",
		"status":             status,
		"current_period_end": 1767225600,
		"metadata": map[string]string{
			"user_id":  userID,
			"plan":     "pro",
			"interval": "annual",
		},
	}
}

func TestHandleCheckoutCompleted(t *testing.T) {
	t.Parallel()

	svc, store, provider, rec := newBillingTest(t)
	profile := testutil.NewTestProfile("jane")
	store.AddProfile(profile)
	provider.Subscriptions["sub_1"] = &billing.Subscription{
		ID:               "sub_1",
		Status:           "active",
		UserID:           profile.ID,
		Plan:             "creator",
		Interval:         "monthly",
		CurrentPeriodEnd: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	ev := event(t, "evt_1", billing.EventCheckoutCompleted, map[string]any{
		"id":           "cs_1",
		"object":       "checkout.session",
		"subscription": "sub_1",
		"amount_total": 1900,
	})

	outcome, err := svc.HandleEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if outcome != WebhookProcessed {
		t.Errorf("outcome = %q, want %q", outcome, WebhookProcessed)
	}

	p, _ := store.GetProfile(context.Background(), profile.ID)
	if p.SubscriptionStatus == nil || *p.SubscriptionStatus != "active" {
		t.Errorf("status = %v, want active", p.SubscriptionStatus)
	}
	if p.SubscriptionPlan == nil || *p.SubscriptionPlan != "creator" {
		t.Errorf("plan = %v, want creator", p.SubscriptionPlan)
	}
	if p.StripeSubscriptionID == nil || *p.StripeSubscriptionID != "sub_1" {
		t.Errorf("subscription id = %v, want sub_1", p.StripeSubscriptionID)
	}
	if p.SubscriptionPeriodEnd == nil || !p.SubscriptionPeriodEnd.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("period end = %v", p.SubscriptionPeriodEnd)
	}

	types := store.EventTypes()
	if len(types) != 1 || types[0] != model.EventSubscriptionCreated {
		t.Errorf("events = %v, want [%s]", types, model.EventSubscriptionCreated)
	}
	if got := rec.Count("webhook_events", billing.EventCheckoutCompleted, WebhookProcessed); got != 1 {
		t.Errorf("processed count = %d, want 1", got)
	}
}

func TestHandleEventDuplicate(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newBillingTest(t)
	profile := testutil.NewTestProfile("jane")
	store.AddProfile(profile)

	ev := event(t, "evt_dup", billing.EventSubscriptionUpdated, subscriptionObject("sub_1", "past_due", profile.ID))

	for i, want := range []string{WebhookProcessed, WebhookDuplicate} {
		outcome, err := svc.HandleEvent(context.Background(), ev)
		if err != nil {
			t.Fatalf("HandleEvent() #%d error = %v", i, err)
		}
		if outcome != want {
			t.Errorf("HandleEvent() #%d = %q, want %q", i, outcome, want)
		}
	}
	if got := len(store.Updates[profile.ID]); got != 1 {
		t.Errorf("updates = %d, want 1", got)
	}
}

func TestHandleSubscriptionUpdated(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newBillingTest(t)
	profile := testutil.NewTestProfile("jane")
	store.AddProfile(profile)

	ev := event(t, "evt_2", billing.EventSubscriptionUpdated, subscriptionObject("sub_1", "past_due", profile.ID))
	if _, err := svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	update := store.Updates[profile.ID][0]
	if update.Status != model.SubscriptionPastDue {
		t.Errorf("Status = %q, want past_due", update.Status)
	}
	if update.Plan == nil || *update.Plan != "pro" || update.Interval == nil || *update.Interval != "annual" {
		t.Errorf("plan/interval = %v/%v", update.Plan, update.Interval)
	}
	if update.PeriodEnd == nil || update.PeriodEnd.Unix() != 1767225600 {
		t.Errorf("PeriodEnd = %v", update.PeriodEnd)
	}
	if update.SubscriptionID != nil {
		t.Errorf("SubscriptionID = %v, want unchanged", *update.SubscriptionID)
	}
}

func TestHandleSubscriptionDeleted(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newBillingTest(t)
	profile := testutil.NewTestProfile("jane")
	profile.SubscriptionPlan = testutil.Ptr("pro")
	profile.SubscriptionInterval = testutil.Ptr("annual")
	profile.StripeSubscriptionID = testutil.Ptr("sub_1")
	store.AddProfile(profile)

	ev := event(t, "evt_3", billing.EventSubscriptionDeleted, subscriptionObject("sub_1", "canceled", profile.ID))
	if _, err := svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	p, _ := store.GetProfile(context.Background(), profile.ID)
	if p.SubscriptionStatus == nil || *p.SubscriptionStatus != "canceled" {
		t.Errorf("status = %v, want canceled", p.SubscriptionStatus)
	}
	if p.SubscriptionPlan != nil || p.SubscriptionInterval != nil || p.StripeSubscriptionID != nil {
		t.Errorf("subscription fields not cleared: %+v", p)
	}
	if types := store.EventTypes(); len(types) != 1 || types[0] != model.EventSubscriptionCanceled {
		t.Errorf("events = %v", types)
	}
}

func TestHandleInvoiceEvents(t *testing.T) {
	t.Parallel()

	svc, store, provider, _ := newBillingTest(t)
	profile := testutil.NewTestProfile("jane")
	store.AddProfile(profile)
	provider.Subscriptions["sub_9"] = &billing.Subscription{ID: "sub_9", Status: "active", UserID: profile.ID}

	paid := event(t, "evt_paid", billing.EventInvoicePaymentSucceeded, map[string]any{
		"id": "in_1", "object": "invoice", "subscription": "sub_9", "amount_paid": 1900,
	})
	failed := event(t, "evt_failed", billing.EventInvoicePaymentFailed, map[string]any{
		"id": "in_2", "object": "invoice", "subscription": "sub_9", "amount_due": 1900,
	})

	for _, ev := range []*billing.Event{paid, failed} {
		outcome, err := svc.HandleEvent(context.Background(), ev)
		if err != nil {
			t.Fatalf("HandleEvent(%s) error = %v", ev.Type, err)
		}
		if outcome != WebhookProcessed {
			t.Errorf("HandleEvent(%s) = %q, want processed", ev.Type, outcome)
		}
	}

	updates := store.Updates[profile.ID]
	if len(updates) != 1 || updates[0].Status != model.SubscriptionPastDue {
		t.Errorf("updates = %+v, want one past_due", updates)
	}
	types := store.EventTypes()
	if len(types) != 2 || types[0] != model.EventPaymentSucceeded || types[1] != model.EventPaymentFailed {
		t.Errorf("events = %v", types)
	}
}

func TestHandleEventIgnored(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newBillingTest(t)

	tests := []struct {
		name string
		ev   *billing.Event
	}{
		{"unhandled_type", event(t, "evt_a", "customer.created", map[string]any{"id": "cus_1"})},
		{"checkout_without_subscription", event(t, "evt_b", billing.EventCheckoutCompleted, map[string]any{"id": "cs_2"})},
		{"subscription_without_user", event(t, "evt_c", billing.EventSubscriptionUpdated, subscriptionObject("sub_x", "active", ""))},
		{"invoice_without_subscription", event(t, "evt_d", billing.EventInvoicePaymentFailed, map[string]any{"id": "in_x"})},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome, err := svc.HandleEvent(context.Background(), test.ev)
			if err != nil {
				t.Fatalf("HandleEvent() error = %v", err)
			}
			if outcome != WebhookIgnored {
				t.Errorf("outcome = %q, want %q", outcome, WebhookIgnored)
			}
		})
	}
	if len(store.Updates) != 0 {
		t.Errorf("updates = %v, want none", store.Updates)
	}
}

func TestHandleEventFailureIsRetryable(t *testing.T) {
	t.Parallel()

	svc, store, _, rec := newBillingTest(t)
	store.Err = errors.New("db down")

	ev := event(t, "evt_retry", billing.EventSubscriptionUpdated, subscriptionObject("sub_1", "active", "user-1"))

	outcome, err := svc.HandleEvent(context.Background(), ev)
	if err == nil || outcome != WebhookFailed {
		t.Fatalf("HandleEvent() = %q, %v, want failed", outcome, err)
	}

	store.Err = nil
	store.AddProfile(&model.Profile{ID: "user-1", Username: "u1"})

	outcome, err = svc.HandleEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if outcome != WebhookProcessed {
		t.Errorf("retry outcome = %q, want processed", outcome)
	}
	if got := rec.Count("webhook_events", billing.EventSubscriptionUpdated, WebhookFailed); got != 1 {
		t.Errorf("failed count = %d, want 1", got)
	}
}

func TestHandleEventMissingProfileFails(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newBillingTest(t)
	ev := event(t, "evt_np", billing.EventSubscriptionDeleted, subscriptionObject("sub_1", "canceled", "ghost"))

	_, err := svc.HandleEvent(context.Background(), ev)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected %v, got %v", repository.ErrNotFound, err)
	}
}

func TestHandleEventDedupeUnavailable(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	dedupe := testutil.NewFakeDeduper()
	dedupe.Err = errors.New("redis down")
	svc := NewBillingService(store, testutil.NewFakeBilling(), BillingConfig{Dedupe: dedupe})
	store.AddProfile(&model.Profile{ID: "u1", Username: "u1"})

	ev := event(t, "evt_x", billing.EventSubscriptionUpdated, subscriptionObject("sub_1", "active", "u1"))
	for i := 0; i < 2; i++ {
		if outcome, err := svc.HandleEvent(context.Background(), ev); err != nil || outcome != WebhookProcessed {
			t.Fatalf("HandleEvent() #%d = %q, %v", i, outcome, err)
		}
	}
}

var _ AuthClient = (*supabase.Client)(nil)
