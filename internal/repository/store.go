package repository

import (
	"context"
	"errors"

	"github.com/logicloom/logicloom/internal/model"
)

// Common errors for store operations.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store reads and writes application rows. Both the direct Postgres
// Repository and the Hosted REST store implement it.
type Store interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error)
	SetStripeCustomerID(ctx context.Context, profileID, customerID string) error
	UpdateSubscription(ctx context.Context, profileID string, update model.SubscriptionUpdate) error

	ListActiveBioLinks(ctx context.Context, profileID string) ([]*model.BioLink, error)
	ListDeals(ctx context.Context, userID string) ([]*model.Deal, error)
	ListRecentRateCalculations(ctx context.Context, userID string, limit int) ([]*model.RateCalculation, error)
	CreateRateCalculation(ctx context.Context, calc *model.RateCalculation) error

	CreateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error
	CreateEvent(ctx context.Context, event *model.Event) error

	Ping(ctx context.Context) error
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*Hosted)(nil)
)
