package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/logicloom/logicloom/internal/testutil"
)

func TestEstimateRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		platform   string
		followers  int64
		engagement float64
		want       int64
	}{
		{"instagram base", PlatformInstagram, 10000, 2.5, 100},
		{"tiktok high engagement", PlatformTikTok, 10000, 4, 60},
		{"youtube at threshold", PlatformYouTube, 12345, 3.0, 247},
		{"youtube above threshold", PlatformYouTube, 12345, 3.1, 296},
		{"unknown platform uses default", "Twitch", 2000, 1, 20},
		{"no followers", PlatformInstagram, 0, 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EstimateRate(tt.platform, tt.followers, tt.engagement); got != tt.want {
				t.Errorf("EstimateRate(%s, %d, %v) = %d, want %d", tt.platform, tt.followers, tt.engagement, got, tt.want)
			}
		})
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRateCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		userID    string
		wantSaved bool
	}{
		{"anonymous is not stored", "", false},
		{"signed in is stored", "user-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := testutil.NewMemoryStore()
			svc := NewRateService(store, nil)

			est, err := svc.Calculate(context.Background(), RateInput{
				Platform:   PlatformInstagram,
				Followers:  10000,
				Engagement: 2.5,
				UserID:     tt.userID,
			})
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if est.Rate != 100 || !near(est.Min, 80) || !near(est.Max, 120) {
				t.Errorf("estimate = %d (%v-%v), want 100 (80-120)", est.Rate, est.Min, est.Max)
			}
			if est.Saved != tt.wantSaved {
				t.Errorf("Saved = %v, want %v", est.Saved, tt.wantSaved)
			}

			wantRows := 0
			if tt.wantSaved {
				wantRows = 1
			}
			if len(store.Calculations) != wantRows {
				t.Fatalf("stored calculations = %d, want %d", len(store.Calculations), wantRows)
			}
			if wantRows == 0 {
				return
			}
			c := store.Calculations[0]
			if c.UserID != tt.userID || c.Platform != PlatformInstagram || c.Followers != 10000 {
				t.Errorf("stored = %+v", c)
			}
			if c.EngagementRate != 2.5 || !near(c.EstimatedMin, 80) || !near(c.EstimatedMax, 120) {
				t.Errorf("stored engagement/min/max = %v/%v/%v, want 2.5/80/120", c.EngagementRate, c.EstimatedMin, c.EstimatedMax)
			}
		})
	}
}

func TestRateCalculateStoreFailure(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	store.Err = errors.New("connection refused")
	svc := NewRateService(store, nil)

	est, err := svc.Calculate(context.Background(), RateInput{
		Platform: PlatformYouTube, Followers: 5000, Engagement: 4, UserID: "user-1",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v, want estimate despite store failure", err)
	}
	if est.Rate != 120 {
		t.Errorf("Rate = %d, want 120", est.Rate)
	}
	if est.Saved {
		t.Error("Saved = true, want false")
	}
}

func TestRateCalculateInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   RateInput
	}{
		{"unknown platform", RateInput{Platform: "Twitch", Followers: 10}},
		{"lowercase platform", RateInput{Platform: "instagram", Followers: 10}},
		{"negative followers", RateInput{Platform: PlatformTikTok, Followers: -1}},
		{"engagement over 100", RateInput{Platform: PlatformTikTok, Followers: 10, Engagement: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := testutil.NewMemoryStore()
			_, err := NewRateService(store, nil).Calculate(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Calculate() error = %v, want ErrInvalidInput", err)
			}
			if len(store.Calculations) != 0 {
				t.Errorf("stored calculations = %d, want 0", len(store.Calculations))
			}
		})
	}
}
