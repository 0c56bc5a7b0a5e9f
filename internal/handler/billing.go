package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/billing"
	"github.com/logicloom/logicloom/internal/handler/dto"
	"github.com/logicloom/logicloom/internal/middleware"
	"github.com/logicloom/logicloom/internal/service"
)

// maxWebhookPayload bounds the webhook body read for signature checks.
const maxWebhookPayload = 64 << 10

// BillingHandler serves the billing API routes. Provider and store failures
// are answered with a fixed message; the cause is only logged.
type BillingHandler struct {
	svc      *service.BillingService
	provider billing.Provider
	logger   *slog.Logger
}

// NewBillingHandler creates a new BillingHandler. provider verifies webhook
// signatures.
func NewBillingHandler(svc *service.BillingService, provider billing.Provider, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{svc: svc, provider: provider, logger: logger}
}

// Portal handles POST /api/portal.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	url, err := h.svc.PortalURL(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrNoBillingCustomer) {
			writeError(w, http.StatusBadRequest, "No subscription found")
			return
		}
		h.logger.Error("portal_session_failed",
			slog.String("user_id", user.ID),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Failed to create portal session")
		return
	}

	h.logger.Info("portal_session_created", slog.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, dto.PortalResponse{URL: url})
}

// Checkout handles POST /api/checkout.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.svc.Checkout(r.Context(), service.CheckoutInput{
		Plan:     req.Plan,
		Interval: req.Interval,
		User:     auth.UserFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Invalid request body")
		case errors.Is(err, service.ErrBillingNotConfigured):
			writeError(w, http.StatusInternalServerError, "Payment system not configured")
		case errors.Is(err, service.ErrInvalidPlan):
			h.logger.Error("checkout_price_missing",
				slog.String("plan", req.Plan),
				slog.String("interval", req.Interval),
			)
			writeError(w, http.StatusInternalServerError, "Invalid plan configuration")
		default:
			h.logger.Error("checkout_session_failed",
				slog.String("request_id", middleware.GetRequestID(r.Context())),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
		}
		return
	}

	h.logger.Info("checkout_session_created",
		slog.String("plan", req.Plan),
		slog.String("interval", req.Interval),
		slog.String("user_id", auth.UserIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, dto.CheckoutResponse{URL: session.URL, SessionID: session.ID})
}

// Webhook handles POST /api/webhooks/stripe.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		writeError(w, http.StatusBadRequest, "Missing signature")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookPayload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.provider.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrWebhookNotConfigured) {
			h.logger.Error("webhook_secret_missing")
			writeError(w, http.StatusInternalServerError, "Webhook secret not configured")
			return
		}
		h.logger.Warn("webhook_signature_invalid", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	outcome, err := h.svc.HandleEvent(r.Context(), event)
	if err != nil {
		h.logger.Error("webhook_handler_failed",
			slog.String("event_id", event.ID),
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Webhook handler failed")
		return
	}

	h.logger.Info("webhook_received",
		slog.String("event_id", event.ID),
		slog.String("type", event.Type),
		slog.String("outcome", outcome),
	)
	writeJSON(w, http.StatusOK, dto.WebhookResponse{Received: true})
}
