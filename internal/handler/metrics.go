package handler

import (
	"net/http"
)

// MetricsExporter exposes collected metrics over HTTP.
type MetricsExporter interface {
	Handler() http.Handler
}

// MetricsHandler serves /metrics.
type MetricsHandler struct {
	exporter MetricsExporter
}

// NewMetricsHandler creates a new MetricsHandler. A nil exporter answers 503.
func NewMetricsHandler(exporter MetricsExporter) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	h.exporter.Handler().ServeHTTP(w, r)
}
