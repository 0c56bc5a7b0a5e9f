// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them for tests.
type Recorder interface {
	// HTTP metrics. route is the matched route pattern, not the raw path.
	ObserveHTTPRequest(route, method string, status int, duration time.Duration)

	// Session resolution: outcome is "user", "anonymous", "refreshed" or "error".
	IncSessionResolved(outcome string)

	// Billing metrics. status is "success" or a short failure reason.
	IncPortalSession(status string)
	IncCheckoutSession(status string)
	// status is "processed", "duplicate", "ignored" or "failed".
	IncWebhookEvent(eventType, status string)

	// status is "joined", "duplicate", "invalid" or "failed".
	IncWaitlistSignup(status string)

	IncRateLimited(scope string)

	// Buffered event stream. status is "published", "fallback", "written",
	// "failed" or "dead_lettered".
	IncStreamEvent(status string)
	SetStreamBacklog(n int64)
}
