package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {}
func (n *NoopRecorder) IncSessionResolved(outcome string)                                           {}
func (n *NoopRecorder) IncPortalSession(status string)                                              {}
func (n *NoopRecorder) IncCheckoutSession(status string)                                            {}
func (n *NoopRecorder) IncWebhookEvent(eventType, status string)                                    {}
func (n *NoopRecorder) IncWaitlistSignup(status string)                                             {}
func (n *NoopRecorder) IncRateLimited(scope string)                                                 {}
func (n *NoopRecorder) IncStreamEvent(status string)                                                {}
func (n *NoopRecorder) SetStreamBacklog(count int64)                                                {}
