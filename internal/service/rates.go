package service

import (
	"context"
	"log/slog"
	"math"

	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

// Platforms offered by the rate calculator.
const (
	PlatformInstagram = "Instagram"
	PlatformTikTok    = "TikTok"
	PlatformYouTube   = "YouTube"
)

// RatePlatforms lists the calculator's platforms in form order.
var RatePlatforms = []string{PlatformInstagram, PlatformTikTok, PlatformYouTube}

const (
	// highEngagement is the engagement percentage above which the bonus applies.
	highEngagement       = 3.0
	engagementMultiplier = 1.2

	rateMinFactor = 0.8
	rateMaxFactor = 1.2
)

// platformBase is the dollar rate per thousand followers.
func platformBase(platform string) float64 {
	switch platform {
	case PlatformYouTube:
		return 20
	case PlatformTikTok:
		return 5
	default:
		return 10
	}
}

// EstimateRate returns the rounded per-post rate in dollars for an account.
func EstimateRate(platform string, followers int64, engagement float64) int64 {
	mult := 1.0
	if engagement > highEngagement {
		mult = engagementMultiplier
	}
	return int64(math.Round(float64(followers) / 1000 * platformBase(platform) * mult))
}

// RateInput is a rate calculator submission.
type RateInput struct {
	Platform   string  `validate:"oneof=Instagram TikTok YouTube"`
	Followers  int64   `validate:"gte=0"`
	Engagement float64 `validate:"gte=0,lte=100"`
	// UserID is the signed-in user, if any. Only their estimates are saved.
	UserID string `validate:"-"`
}

// RateEstimate is the calculator result.
type RateEstimate struct {
	Rate int64
	Min  float64
	Max  float64
	// Saved reports whether the estimate was stored in the user's history.
	Saved bool
}

// RateService computes sponsorship rate estimates.
type RateService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewRateService creates a new RateService.
func NewRateService(store repository.Store, logger *slog.Logger) *RateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateService{store: store, logger: logger}
}

// Calculate estimates a rate. Estimates of signed-in users are stored; a
// failed insert is logged and the estimate is still returned.
func (s *RateService) Calculate(ctx context.Context, in RateInput) (*RateEstimate, error) {
	if err := validate.Struct(in); err != nil {
		return nil, ErrInvalidInput
	}

	rate := EstimateRate(in.Platform, in.Followers, in.Engagement)
	est := &RateEstimate{
		Rate: rate,
		Min:  float64(rate) * rateMinFactor,
		Max:  float64(rate) * rateMaxFactor,
	}
	if in.UserID == "" {
		return est, nil
	}

	err := s.store.CreateRateCalculation(ctx, &model.RateCalculation{
		UserID:         in.UserID,
		Platform:       in.Platform,
		Followers:      in.Followers,
		EngagementRate: in.Engagement,
		EstimatedMin:   est.Min,
		EstimatedMax:   est.Max,
	})
	if err != nil {
		s.logger.Warn("rate_calculation_save_failed",
			slog.String("user_id", in.UserID),
			slog.String("error", err.Error()),
		)
		return est, nil
	}
	est.Saved = true
	return est, nil
}
