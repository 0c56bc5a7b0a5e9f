package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/handler/dto"
	"github.com/logicloom/logicloom/internal/service"
)

// WaitlistHandler handles premium waitlist signups.
type WaitlistHandler struct {
	svc    *service.WaitlistService
	logger *slog.Logger
}

// NewWaitlistHandler creates a new WaitlistHandler.
func NewWaitlistHandler(svc *service.WaitlistService, logger *slog.Logger) *WaitlistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WaitlistHandler{svc: svc, logger: logger}
}

// Join handles POST /api/waitlist.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req dto.WaitlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.svc.Join(r.Context(), service.JoinWaitlistInput{
		Email:  req.Email,
		Score:  req.Score,
		UserID: auth.UserIDFromContext(r.Context()),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.WaitlistResponse{Success: true, Message: service.WaitlistJoinedMessage})
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Please enter a valid email address")
	case errors.Is(err, service.ErrAlreadyOnWaitlist):
		writeError(w, http.StatusConflict, "This email is already on the waitlist!")
	default:
		h.logger.Error("waitlist_join_failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to join waitlist. Please try again.")
	}
}
