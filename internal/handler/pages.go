package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/middleware"
	"github.com/logicloom/logicloom/internal/service"
	"github.com/logicloom/logicloom/internal/view"
)

// DashboardData is the dashboard page model.
type DashboardData struct {
	Overview *service.Overview
	// Success is set after returning from checkout.
	Success bool
}

// pages renders HTML pages with the request's user and path filled in.
type pages struct {
	view   *view.Renderer
	logger *slog.Logger
}

func (p pages) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	page := view.Page{
		Title: title,
		User:  auth.UserFromContext(r.Context()),
		Path:  strings.TrimPrefix(r.URL.Path, p.view.BasePath()),
		Data:  data,
	}

	var buf bytes.Buffer
	if err := p.view.Render(&buf, name, page); err != nil {
		p.logger.Error("page_render_failed",
			slog.String("page", name),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p pages) notFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusNotFound, view.PageNotFound, "Not Found", nil)
}

func (p pages) serverError(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusInternalServerError, view.PageError, "Error", nil)
}

func (p pages) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, p.view.URL(to), http.StatusSeeOther)
}

// PageHandler serves the marketing, bio and dashboard pages.
type PageHandler struct {
	pages
	bio       *service.BioService
	dashboard *service.DashboardService
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(renderer *view.Renderer, bio *service.BioService, dashboard *service.DashboardService, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		pages:     pages{view: renderer, logger: logger},
		bio:       bio,
		dashboard: dashboard,
	}
}

// Home handles GET /.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageHome, "", h.view.Content())
}

// Pricing handles GET /pricing and GET /pricing/{interval}. The interval may
// also be given as ?interval=annual. Payment links carry the signed-in user's
// id as client_reference_id.
func (h *PageHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	interval := chi.URLParam(r, "interval")
	if interval == "" {
		interval = r.URL.Query().Get("interval")
	}
	if interval != "" && interval != view.IntervalMonthly && interval != view.IntervalAnnual {
		h.notFound(w, r)
		return
	}

	data := h.view.Content().Pricing(interval, auth.UserIDFromContext(r.Context()))
	h.render(w, r, http.StatusOK, view.PagePricing, "Pricing", data)
}

// Bio handles GET /{username}.
func (h *PageHandler) Bio(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	page, err := h.bio.Page(r.Context(), username)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			h.logger.Info("bio_page_not_found", slog.String("username", username))
			h.notFound(w, r)
			return
		}
		h.logger.Error("bio_page_failed",
			slog.String("username", username),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		h.serverError(w, r)
		return
	}

	h.render(w, r, http.StatusOK, view.PageBio, page.Profile.DisplayName(), page)
}

// Dashboard handles GET /dashboard.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		h.redirect(w, r, "/login")
		return
	}

	overview, err := h.dashboard.Overview(r.Context(), userID)
	if err != nil {
		h.logger.Error("dashboard_load_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.serverError(w, r)
		return
	}

	h.render(w, r, http.StatusOK, view.PageDashboard, "Dashboard", DashboardData{
		Overview: overview,
		Success:  r.URL.Query().Get("success") == "true",
	})
}

// Deals handles GET /dashboard/deals.
func (h *PageHandler) Deals(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		h.redirect(w, r, "/login")
		return
	}

	pipeline, err := h.dashboard.Pipeline(r.Context(), userID)
	if err != nil {
		h.logger.Error("deals_load_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.serverError(w, r)
		return
	}

	h.render(w, r, http.StatusOK, view.PageDeals, "Deals", pipeline)
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r)
}

// MethodNotAllowed handles 405 responses.
func (h *PageHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(strings.TrimPrefix(r.URL.Path, h.view.BasePath()), "/api/") {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

// Error renders the generic error page. It is the fallback of the panic
// recovery middleware.
func (h *PageHandler) Error(w http.ResponseWriter, r *http.Request) {
	h.serverError(w, r)
}
