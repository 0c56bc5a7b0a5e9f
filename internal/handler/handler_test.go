package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/billing"
	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/service"
	"github.com/logicloom/logicloom/internal/supabase"
	"github.com/logicloom/logicloom/internal/testutil"
	"github.com/logicloom/logicloom/internal/view"
)

const testAppURL = "https://app.example.test"

// testEnv wires the handlers over in-memory fakes and mounts them the way
// cmd/api does.
type testEnv struct {
	store    *testutil.MemoryStore
	billing  *testutil.FakeBilling
	auth     *testutil.FakeAuth
	dedupe   *testutil.FakeDeduper
	metrics  *metrics.InMemoryRecorder
	cookies  auth.CookieConfig
	provider billing.Provider
	router   chi.Router
}

// envOption adjusts the environment before the handlers are built.
type envOption func(*testEnv)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	e := &testEnv{
		store:   testutil.NewMemoryStore(),
		billing: testutil.NewFakeBilling(),
		auth:    testutil.NewFakeAuth(),
		dedupe:  testutil.NewFakeDeduper(),
		metrics: metrics.NewInMemory(),
	}
	e.provider = e.billing
	for _, opt := range opts {
		opt(e)
	}

	renderer, err := view.New(view.Options{})
	if err != nil {
		t.Fatalf("view.New() error = %v", err)
	}

	billingSvc := service.NewBillingService(e.store, e.billing, service.BillingConfig{
		AppURL: testAppURL,
		Prices: map[string]map[string]string{
			"creator": {"monthly": "price_creator_m", "annual": "price_creator_a"},
			"pro":     {"monthly": "price_pro_m"},
		},
		Dedupe:  e.dedupe,
		Metrics: e.metrics,
	})

	pages := NewPageHandler(renderer,
		service.NewBioService(e.store, nil),
		service.NewDashboardService(e.store),
		nil,
	)
	account := NewAccountHandler(service.NewAccountService(e.auth), renderer, e.cookies, nil)
	billingHandler := NewBillingHandler(billingSvc, e.provider, nil)
	waitlist := NewWaitlistHandler(service.NewWaitlistService(e.store, nil, e.metrics), nil)
	tools := NewToolsHandler(renderer, service.NewRateService(e.store, nil), nil)

	r := chi.NewRouter()
	r.NotFound(pages.NotFound)
	r.Get("/", pages.Home)
	r.Get("/pricing", pages.Pricing)
	r.Get("/pricing/{interval}", pages.Pricing)
	r.Get("/login", account.LoginForm)
	r.Post("/login", account.Login)
	r.Get("/signup", account.SignupForm)
	r.Post("/signup", account.Signup)
	r.Post("/logout", account.Logout)
	r.Get("/dashboard", pages.Dashboard)
	r.Get("/dashboard/deals", pages.Deals)
	r.Get("/tools/rate-calculator", tools.RateCalculatorForm)
	r.Post("/tools/rate-calculator", tools.RateCalculator)
	r.Post("/api/portal", billingHandler.Portal)
	r.Post("/api/checkout", billingHandler.Checkout)
	r.Post("/api/webhooks/stripe", billingHandler.Webhook)
	r.Post("/api/waitlist", waitlist.Join)
	r.Get("/{username}", pages.Bio)
	e.router = r

	return e
}

// do serves req, signed in as user when user is not nil.
func (e *testEnv) do(req *http.Request, user *supabase.User) *httptest.ResponseRecorder {
	if user != nil {
		ctx := auth.ContextWithSession(req.Context(), &auth.Session{User: user, AccessToken: "access-" + user.Email})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func parseHTML(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

func byClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Data != tag {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
