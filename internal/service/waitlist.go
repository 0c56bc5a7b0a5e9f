package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

// WaitlistJoinedMessage is shown after a successful signup.
const WaitlistJoinedMessage = "You're on the list! We'll be in touch soon. 🎉"

// JoinWaitlistInput is a waitlist submission.
type JoinWaitlistInput struct {
	Email string
	Score *float64
	// UserID is the signed-in user, if any.
	UserID string
}

// WaitlistService adds emails to the premium waitlist.
type WaitlistService struct {
	store   repository.Store
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewWaitlistService creates a new WaitlistService.
func NewWaitlistService(store repository.Store, logger *slog.Logger, recorder metrics.Recorder) *WaitlistService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &WaitlistService{store: store, logger: logger, metrics: recorder}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Join validates and stores the email, then appends a waitlist_joined event.
// The event is best effort.
func (s *WaitlistService) Join(ctx context.Context, in JoinWaitlistInput) error {
	email := NormalizeEmail(in.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		s.metrics.IncWaitlistSignup("invalid")
		return ErrInvalidEmail
	}

	err := s.store.CreateWaitlistEntry(ctx, &model.WaitlistEntry{
		Email:         email,
		Source:        model.WaitlistSourceSimulator,
		ScoreAtSignup: in.Score,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.IncWaitlistSignup("duplicate")
			return ErrAlreadyOnWaitlist
		}
		s.metrics.IncWaitlistSignup("failed")
		return fmt.Errorf("join waitlist: %w", err)
	}
	s.metrics.IncWaitlistSignup("joined")

	payload := map[string]any{"email_domain": emailDomain(email)}
	if in.Score != nil {
		payload["score_at_signup"] = *in.Score
	}
	if err := s.store.CreateEvent(ctx, model.NewEvent(in.UserID, model.EventWaitlistJoined, payload)); err != nil {
		s.logger.Warn("waitlist_event_failed", slog.String("error", err.Error()))
	}
	return nil
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
