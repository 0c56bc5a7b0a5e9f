package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/logicloom/logicloom/internal/billing"
	"github.com/logicloom/logicloom/internal/supabase"
)

// FakeBilling is a billing.Provider recording its calls.
type FakeBilling struct {
	mu sync.Mutex

	Disabled      bool
	PortalURL     string
	PortalErr     error
	CheckoutErr   error
	Subscriptions map[string]*billing.Subscription
	// Events maps a signature header to the event it verifies to.
	Events map[string]*billing.Event

	PortalCalls     []PortalCall
	CheckoutCalls   []billing.CheckoutParams
	CustomersMade   []string
	WebhookDisabled bool
}

// PortalCall is one CreatePortalSession invocation.
type PortalCall struct {
	CustomerID string
	ReturnURL  string
}

var _ billing.Provider = (*FakeBilling)(nil)

// NewFakeBilling returns an enabled FakeBilling.
func NewFakeBilling() *FakeBilling {
	return &FakeBilling{
		PortalURL:     "https://billing.example.test/session",
		Subscriptions: make(map[string]*billing.Subscription),
		Events:        make(map[string]*billing.Event),
	}
}

func (f *FakeBilling) Configured() bool { return !f.Disabled }

func (f *FakeBilling) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PortalCalls = append(f.PortalCalls, PortalCall{CustomerID: customerID, ReturnURL: returnURL})
	if f.PortalErr != nil {
		return "", f.PortalErr
	}
	return f.PortalURL, nil
}

func (f *FakeBilling) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("cus_%d", len(f.CustomersMade)+1)
	f.CustomersMade = append(f.CustomersMade, email)
	return id, nil
}

func (f *FakeBilling) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CheckoutCalls = append(f.CheckoutCalls, params)
	if f.CheckoutErr != nil {
		return nil, f.CheckoutErr
	}
	return &billing.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example.test/cs_test_1"}, nil
}

func (f *FakeBilling) GetSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.Subscriptions[id]
	if !ok {
		return nil, errors.New("no such subscription: " + id)
	}
	cp := *sub
	return &cp, nil
}

func (f *FakeBilling) ConstructEvent(payload []byte, signature string) (*billing.Event, error) {
	if f.WebhookDisabled {
		return nil, billing.ErrWebhookNotConfigured
	}
	ev, ok := f.Events[signature]
	if !ok {
		return nil, billing.ErrInvalidSignature
	}
	return ev, nil
}

// FakeAuth is a service.AuthClient with fixed accounts.
type FakeAuth struct {
	Disabled  bool
	Passwords map[string]string
	// ConfirmEmail makes SignUp return no session.
	ConfirmEmail bool
	SignedOut    []string
}

// NewFakeAuth returns an enabled FakeAuth.
func NewFakeAuth() *FakeAuth {
	return &FakeAuth{Passwords: make(map[string]string)}
}

func (f *FakeAuth) Configured() bool { return !f.Disabled }

func (f *FakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error) {
	if pw, ok := f.Passwords[email]; !ok || pw != password {
		return nil, &supabase.APIError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	return &supabase.Session{
		AccessToken:  "access-" + email,
		RefreshToken: "refresh-" + email,
		ExpiresIn:    3600,
		User:         &supabase.User{ID: "user-" + email, Email: email},
	}, nil
}

func (f *FakeAuth) SignUp(ctx context.Context, email, password string) (*supabase.User, *supabase.Session, error) {
	if _, ok := f.Passwords[email]; ok {
		return nil, nil, &supabase.APIError{Status: 422, Code: "user_already_exists", Message: "User already registered"}
	}
	f.Passwords[email] = password
	user := &supabase.User{ID: "user-" + email, Email: email}
	if f.ConfirmEmail {
		return user, nil, nil
	}
	return user, &supabase.Session{AccessToken: "access-" + email, RefreshToken: "refresh-" + email, User: user}, nil
}

func (f *FakeAuth) SignOut(ctx context.Context, accessToken string) error {
	f.SignedOut = append(f.SignedOut, accessToken)
	return nil
}

// FakeDeduper is an in-memory service.EventDeduper.
type FakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	Err  error
}

// NewFakeDeduper returns an empty FakeDeduper.
func NewFakeDeduper() *FakeDeduper {
	return &FakeDeduper{seen: make(map[string]bool)}
}

func (f *FakeDeduper) MarkEventProcessing(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *FakeDeduper) ForgetEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, eventID)
	return nil
}
