package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/logicloom/logicloom/internal/billing"
	"github.com/logicloom/logicloom/internal/handler/dto"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/testutil"
)

const testWebhookSecret = "whsec_test_secret"

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestBillingHandler_Portal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		signedIn   bool
		customerID *string
		portalErr  error
		wantCode   int
		wantError  string
	}{
		{"not signed in", false, nil, nil, http.StatusUnauthorized, "Not authenticated"},
		{"no customer", true, nil, nil, http.StatusBadRequest, "No subscription found"},
		{"empty customer", true, testutil.Ptr(""), nil, http.StatusBadRequest, "No subscription found"},
		{"provider failure", true, testutil.Ptr("cus_42"), errors.New("stripe: 500"), http.StatusInternalServerError, "Failed to create portal session"},
		{"success", true, testutil.Ptr("cus_42"), nil, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.billing.PortalErr = tt.portalErr
			profile := testutil.NewTestProfile("maya")
			profile.StripeCustomerID = tt.customerID
			env.store.AddProfile(profile)

			user := testutil.NewTestUser(profile)
			if !tt.signedIn {
				user = nil
			}

			rec := env.do(httptest.NewRequest(http.MethodPost, "/api/portal", nil), user)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			if tt.wantError != "" {
				if got := decodeError(t, rec); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}

			var body dto.PortalResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.URL != env.billing.PortalURL {
				t.Errorf("url = %q, want %q", body.URL, env.billing.PortalURL)
			}
			want := []testutil.PortalCall{{CustomerID: "cus_42", ReturnURL: testAppURL + "/dashboard"}}
			if diff := cmp.Diff(want, env.billing.PortalCalls); diff != "" {
				t.Errorf("portal calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBillingHandler_PortalProfileMissing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	profile := testutil.NewTestProfile("ghost")

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/portal", nil), testutil.NewTestUser(profile))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBillingHandler_Checkout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	profile := testutil.NewTestProfile("maya")
	env.store.AddProfile(profile)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"plan":"creator","interval":"annual"}`))
	rec := env.do(req, testutil.NewTestUser(profile))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"url": "https://checkout.example.test/cs_test_1", "sessionId": "cs_test_1"}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}

	if len(env.billing.CheckoutCalls) != 1 {
		t.Fatalf("checkout calls = %d, want 1", len(env.billing.CheckoutCalls))
	}
	call := env.billing.CheckoutCalls[0]
	if call.PriceID != "price_creator_a" || call.CustomerID != "cus_1" {
		t.Errorf("checkout params = %+v", call)
	}
	if call.Metadata["user_id"] != profile.ID {
		t.Errorf("metadata user_id = %q, want %q", call.Metadata["user_id"], profile.ID)
	}
}

func TestBillingHandler_CheckoutErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		setup     func(*testEnv)
		wantCode  int
		wantError string
	}{
		{"malformed json", `{"plan":`, nil, http.StatusBadRequest, "Invalid request body"},
		{"empty body", ``, nil, http.StatusBadRequest, "Invalid request body"},
		{"unknown plan", `{"plan":"enterprise","interval":"monthly"}`, nil, http.StatusBadRequest, "Invalid request body"},
		{"not configured", `{"plan":"pro","interval":"monthly"}`, func(e *testEnv) { e.billing.Disabled = true }, http.StatusInternalServerError, "Payment system not configured"},
		{"missing price", `{"plan":"agency","interval":"monthly"}`, nil, http.StatusInternalServerError, "Invalid plan configuration"},
		{"provider failure", `{"plan":"pro","interval":"monthly"}`, func(e *testEnv) { e.billing.CheckoutErr = errors.New("card_declined") }, http.StatusInternalServerError, "Failed to create checkout session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}

			rec := env.do(httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(tt.body)), nil)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decodeError(t, rec); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}
}

// stripeVerifier verifies signatures with the real Stripe implementation and
// delegates everything else to the fake.
type stripeVerifier struct {
	*testutil.FakeBilling
	stripe *billing.Stripe
}

func (s stripeVerifier) ConstructEvent(payload []byte, signature string) (*billing.Event, error) {
	return s.stripe.ConstructEvent(payload, signature)
}

func signedWebhook(t *testing.T, secret, payload string) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func subscriptionEvent(id, eventType, userID string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2023-10-16",
		"type": %q,
		"data": {"object": {
			"id": "sub_123",
			"object": "subscription",
			"status": "canceled",
			"metadata": {"user_id": %q, "plan": "pro", "interval": "monthly"}
		}}
	}`, id, eventType, userID)
}

func newWebhookEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	return newTestEnv(t, func(e *testEnv) {
		e.provider = stripeVerifier{
			FakeBilling: e.billing,
			stripe:      billing.NewStripe(billing.Config{WebhookSecret: secret}),
		}
	})
}

func TestBillingHandler_Webhook(t *testing.T) {
	t.Parallel()

	env := newWebhookEnv(t, testWebhookSecret)
	profile := testutil.NewTestProfile("maya")
	env.store.AddProfile(profile)

	payload := subscriptionEvent("evt_1", billing.EventSubscriptionDeleted, profile.ID)

	rec := env.do(signedWebhook(t, testWebhookSecret, payload), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != `{"received":true}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	updates := env.store.Updates[profile.ID]
	if len(updates) != 1 || updates[0].Status != model.SubscriptionCanceled || !updates[0].Clear {
		t.Errorf("updates = %+v", updates)
	}
	if diff := cmp.Diff([]string{model.EventSubscriptionCanceled}, env.store.EventTypes()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	// A redelivery is acknowledged without touching the store again.
	rec = env.do(signedWebhook(t, testWebhookSecret, payload), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("redelivery status = %d, want 200", rec.Code)
	}
	if len(env.store.Updates[profile.ID]) != 1 {
		t.Errorf("redelivery was processed again")
	}
	if got := env.metrics.Count("webhook_events", billing.EventSubscriptionDeleted, "duplicate"); got != 1 {
		t.Errorf("duplicate count = %d, want 1", got)
	}
}

func TestBillingHandler_WebhookErrors(t *testing.T) {
	t.Parallel()

	profileID := "7f1c1e0a-0000-4000-8000-000000000001"
	payload := subscriptionEvent("evt_2", billing.EventSubscriptionUpdated, profileID)

	tests := []struct {
		name      string
		secret    string
		req       func(t *testing.T) *http.Request
		wantCode  int
		wantError string
	}{
		{
			name:   "missing signature",
			secret: testWebhookSecret,
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
			},
			wantCode:  http.StatusBadRequest,
			wantError: "Missing signature",
		},
		{
			name:      "wrong secret",
			secret:    testWebhookSecret,
			req:       func(t *testing.T) *http.Request { return signedWebhook(t, "whsec_other", payload) },
			wantCode:  http.StatusBadRequest,
			wantError: "Invalid signature",
		},
		{
			name:   "tampered payload",
			secret: testWebhookSecret,
			req: func(t *testing.T) *http.Request {
				req := signedWebhook(t, testWebhookSecret, payload)
				req.Body = http.NoBody
				return req
			},
			wantCode:  http.StatusBadRequest,
			wantError: "Invalid signature",
		},
		{
			name:      "secret not configured",
			secret:    "",
			req:       func(t *testing.T) *http.Request { return signedWebhook(t, testWebhookSecret, payload) },
			wantCode:  http.StatusInternalServerError,
			wantError: "Webhook secret not configured",
		},
		{
			name:      "unknown profile",
			secret:    testWebhookSecret,
			req:       func(t *testing.T) *http.Request { return signedWebhook(t, testWebhookSecret, payload) },
			wantCode:  http.StatusInternalServerError,
			wantError: "Webhook handler failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newWebhookEnv(t, tt.secret)
			rec := env.do(tt.req(t), nil)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decodeError(t, rec); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}
}

func TestBillingHandler_WebhookIgnoredType(t *testing.T) {
	t.Parallel()

	env := newWebhookEnv(t, testWebhookSecret)
	payload := `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`

	rec := env.do(signedWebhook(t, testWebhookSecret, payload), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := env.metrics.Count("webhook_events", "customer.created", "ignored"); got != 1 {
		t.Errorf("ignored count = %d, want 1", got)
	}
}
