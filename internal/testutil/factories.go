package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/supabase"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// NewTestProfile creates a profile with sensible defaults.
func NewTestProfile(username string) *model.Profile {
	return &model.Profile{
		ID:       uuid.NewString(),
		Username: username,
		FullName: Ptr("Test " + username),
		Bio:      Ptr("Creator bio"),
	}
}

// NewTestUser returns a hosted auth user for a profile.
func NewTestUser(p *model.Profile) *supabase.User {
	return &supabase.User{
		ID:    p.ID,
		Email: p.Username + "@example.com",
		Role:  "authenticated",
	}
}

// NewTestBioLink creates a link for profileID.
func NewTestBioLink(profileID, title string, order int, active bool) *model.BioLink {
	return &model.BioLink{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		Title:      title,
		URL:        "https://example.com/" + title,
		OrderIndex: order,
		IsActive:   active,
	}
}

// NewTestDeal creates a deal owned by userID.
func NewTestDeal(userID, brand string, status model.DealStatus, value float64) *model.Deal {
	return &model.Deal{
		ID:            uuid.NewString(),
		UserID:        userID,
		BrandName:     brand,
		DealValue:     value,
		Currency:      "USD",
		Status:        status,
		PaymentStatus: "pending",
		CreatedAt:     time.Now().UTC(),
	}
}

// NewTestRateCalculation creates a calculation at the given time.
func NewTestRateCalculation(userID, platform string, at time.Time) *model.RateCalculation {
	return &model.RateCalculation{
		ID:           uuid.NewString(),
		UserID:       userID,
		Platform:     platform,
		Followers:    10000,
		EstimatedMin: 200,
		EstimatedMax: 350,
		CalculatedAt: at,
	}
}
