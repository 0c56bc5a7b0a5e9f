package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ Recorder = (*NoopRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*Prometheus)(nil)
)

func TestInMemoryRecorder_Count(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncWebhookEvent("invoice.payment_failed", "processed")
	m.IncWebhookEvent("invoice.payment_failed", "processed")
	m.IncWebhookEvent("invoice.payment_failed", "duplicate")
	m.ObserveHTTPRequest("/api/portal", "POST", 401, time.Millisecond)

	if got := m.Count("webhook_events", "invoice.payment_failed", "processed"); got != 2 {
		t.Errorf("processed count = %d, want 2", got)
	}
	if got := m.Count("webhook_events", "invoice.payment_failed", "duplicate"); got != 1 {
		t.Errorf("duplicate count = %d, want 1", got)
	}
	if got := m.Count("http_requests", "/api/portal", "POST", "401"); got != 1 {
		t.Errorf("http count = %d, want 1", got)
	}
	if got := m.Count("portal_sessions", "success"); got != 0 {
		t.Errorf("unexpected portal count %d", got)
	}
}

func TestPrometheus_CountersAndHandler(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncPortalSession("success")
	p.IncPortalSession("success")
	p.IncRateLimited("api")
	p.ObserveHTTPRequest("/pricing", "GET", 200, 20*time.Millisecond)

	if got := testutil.ToFloat64(p.portalSessions.WithLabelValues("success")); got != 2 {
		t.Errorf("portal sessions = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`logicloom_billing_portal_sessions_total{status="success"} 2`,
		`logicloom_rate_limited_requests_total{scope="api"} 1`,
		`logicloom_http_request_duration_seconds_count{method="GET",route="/pricing",status="200"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
