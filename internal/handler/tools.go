package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/service"
	"github.com/logicloom/logicloom/internal/view"
)

const msgInvalidRate = "Pick a platform and enter a follower count and an engagement rate between 0 and 100."

// ToolsHandler serves the free creator tools.
type ToolsHandler struct {
	pages
	rates *service.RateService
}

// NewToolsHandler creates a new ToolsHandler.
func NewToolsHandler(renderer *view.Renderer, rates *service.RateService, logger *slog.Logger) *ToolsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolsHandler{
		pages: pages{view: renderer, logger: logger},
		rates: rates,
	}
}

// RateCalculatorForm handles GET /tools/rate-calculator.
func (h *ToolsHandler) RateCalculatorForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageRates, "Rate Calculator", view.RateForm{
		Platforms: service.RatePlatforms,
		Platform:  service.PlatformInstagram,
	})
}

// RateCalculator handles POST /tools/rate-calculator. Visitors get the
// estimate only; a signed-in user's estimate is also saved to the dashboard
// history.
func (h *ToolsHandler) RateCalculator(w http.ResponseWriter, r *http.Request) {
	form := view.RateForm{
		Platforms:  service.RatePlatforms,
		Platform:   r.PostFormValue("platform"),
		Followers:  strings.TrimSpace(r.PostFormValue("followers")),
		Engagement: strings.TrimSpace(r.PostFormValue("engagement")),
	}

	followers, ferr := strconv.ParseInt(form.Followers, 10, 64)
	engagement, eerr := strconv.ParseFloat(form.Engagement, 64)
	if ferr != nil || eerr != nil {
		form.Error = msgInvalidRate
		h.render(w, r, http.StatusBadRequest, view.PageRates, "Rate Calculator", form)
		return
	}

	est, err := h.rates.Calculate(r.Context(), service.RateInput{
		Platform:   form.Platform,
		Followers:  followers,
		Engagement: engagement,
		UserID:     auth.UserIDFromContext(r.Context()),
	})
	if err != nil {
		if !errors.Is(err, service.ErrInvalidInput) {
			h.logger.Error("rate_calculation_failed", slog.String("error", err.Error()))
			h.serverError(w, r)
			return
		}
		form.Error = msgInvalidRate
		h.render(w, r, http.StatusBadRequest, view.PageRates, "Rate Calculator", form)
		return
	}

	form.Result = &view.RateResult{Rate: est.Rate, Min: est.Min, Max: est.Max, Saved: est.Saved}
	h.render(w, r, http.StatusOK, view.PageRates, "Rate Calculator", form)
}
