package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logicloom"

// Prometheus is a Recorder backed by its own Prometheus registry.
type Prometheus struct {
	registry *prometheus.Registry

	httpDuration     *prometheus.HistogramVec
	sessionsResolved *prometheus.CounterVec
	portalSessions   *prometheus.CounterVec
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	waitlistSignups  *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	streamEvents     *prometheus.CounterVec
	streamBacklog    prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them together with the
// Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		sessionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_resolved_total",
			Help:      "Session cookie resolutions by outcome.",
		}, []string{"outcome"}),
		portalSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_portal_sessions_total",
			Help:      "Billing portal session requests by status.",
		}, []string{"status"}),
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout session requests by status.",
		}, []string{"status"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_webhook_events_total",
			Help:      "Billing webhook deliveries by event type and status.",
		}, []string{"type", "status"}),
		waitlistSignups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waitlist_signups_total",
			Help:      "Waitlist submissions by status.",
		}, []string{"status"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Activity events passing through the Redis stream by status.",
		}, []string{"status"}),
		streamBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_backlog",
			Help:      "Pending plus undelivered entries in the event stream.",
		}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.httpDuration,
		p.sessionsResolved,
		p.portalSessions,
		p.checkoutSessions,
		p.webhookEvents,
		p.waitlistSignups,
		p.rateLimited,
		p.streamEvents,
		p.streamBacklog,
	)
	return p
}

// Registry exposes the registry for tests and additional collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (p *Prometheus) IncSessionResolved(outcome string) {
	p.sessionsResolved.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) IncPortalSession(status string) {
	p.portalSessions.WithLabelValues(status).Inc()
}

func (p *Prometheus) IncCheckoutSession(status string) {
	p.checkoutSessions.WithLabelValues(status).Inc()
}

func (p *Prometheus) IncWebhookEvent(eventType, status string) {
	p.webhookEvents.WithLabelValues(eventType, status).Inc()
}

func (p *Prometheus) IncWaitlistSignup(status string) {
	p.waitlistSignups.WithLabelValues(status).Inc()
}

func (p *Prometheus) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}

func (p *Prometheus) IncStreamEvent(status string) {
	p.streamEvents.WithLabelValues(status).Inc()
}

func (p *Prometheus) SetStreamBacklog(n int64) {
	p.streamBacklog.Set(float64(n))
}
