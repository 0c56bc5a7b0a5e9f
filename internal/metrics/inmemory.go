package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// InMemoryRecorder stores counters in memory for tests.
type InMemoryRecorder struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{counters: make(map[string]uint64)}
}

// Count returns the counter for name and label values, e.g.
// Count("webhook_events", "invoice.payment_failed", "processed").
func (m *InMemoryRecorder) Count(name string, labels ...string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key(name, labels...)]
}

func (m *InMemoryRecorder) inc(name string, labels ...string) {
	m.mu.Lock()
	m.counters[key(name, labels...)]++
	m.mu.Unlock()
}

func key(name string, labels ...string) string {
	if len(labels) == 0 {
		return name
	}
	return name + "{" + strings.Join(labels, ",") + "}"
}

// ObserveHTTPRequest counts requests by route, method and status.
func (m *InMemoryRecorder) ObserveHTTPRequest(route, method string, status int, _ time.Duration) {
	m.inc("http_requests", route, method, strconv.Itoa(status))
}

// IncSessionResolved counts session resolution outcomes.
func (m *InMemoryRecorder) IncSessionResolved(outcome string) {
	m.inc("sessions_resolved", outcome)
}

// IncPortalSession counts portal session attempts.
func (m *InMemoryRecorder) IncPortalSession(status string) {
	m.inc("portal_sessions", status)
}

// IncCheckoutSession counts checkout session attempts.
func (m *InMemoryRecorder) IncCheckoutSession(status string) {
	m.inc("checkout_sessions", status)
}

// IncWebhookEvent counts webhook deliveries.
func (m *InMemoryRecorder) IncWebhookEvent(eventType, status string) {
	m.inc("webhook_events", eventType, status)
}

// IncWaitlistSignup counts waitlist submissions.
func (m *InMemoryRecorder) IncWaitlistSignup(status string) {
	m.inc("waitlist_signups", status)
}

// IncRateLimited counts rejected requests.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.inc("rate_limited", scope)
}

// IncStreamEvent counts event stream transitions.
func (m *InMemoryRecorder) IncStreamEvent(status string) {
	m.inc("stream_events", status)
}

// SetStreamBacklog is not tracked in memory.
func (m *InMemoryRecorder) SetStreamBacklog(int64) {}
