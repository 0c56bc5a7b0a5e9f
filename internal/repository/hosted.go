package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/supabase"
)

// Hosted stores rows through the hosted project's REST API. Requests carry the
// signed-in user's token when the context has one, so row level security
// policies decide what is visible.
type Hosted struct {
	client *supabase.Client
}

// NewHosted creates a Hosted store.
func NewHosted(client *supabase.Client) *Hosted {
	return &Hosted{client: client}
}

// Ping checks that the REST endpoint is reachable.
func (h *Hosted) Ping(ctx context.Context) error {
	return h.client.Health(ctx)
}

func mapHostedError(err error, op string) error {
	switch {
	case errors.Is(err, supabase.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, supabase.ErrConflict):
		return ErrDuplicate
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// GetProfile retrieves a profile by its (auth user) id.
func (h *Hosted) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := h.client.From("profiles").Eq("id", id).Single(ctx, &p); err != nil {
		return nil, mapHostedError(err, "get profile")
	}
	return &p, nil
}

// GetProfileByUsername retrieves a profile by its public username.
func (h *Hosted) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	var p model.Profile
	if err := h.client.From("profiles").Eq("username", username).Single(ctx, &p); err != nil {
		return nil, mapHostedError(err, "get profile by username")
	}
	return &p, nil
}

// SetStripeCustomerID stores the billing customer id on a profile.
func (h *Hosted) SetStripeCustomerID(ctx context.Context, profileID, customerID string) error {
	err := h.client.From("profiles").Eq("id", profileID).
		Update(ctx, map[string]any{"stripe_customer_id": customerID})
	if err != nil {
		return mapHostedError(err, "set stripe customer")
	}
	return nil
}

// UpdateSubscription writes the non-nil fields of update to a profile.
func (h *Hosted) UpdateSubscription(ctx context.Context, profileID string, update model.SubscriptionUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}
	if err := h.client.From("profiles").Eq("id", profileID).Update(ctx, cols); err != nil {
		return mapHostedError(err, "update subscription")
	}
	return nil
}

// ListActiveBioLinks returns a profile's active links in ascending order_index.
func (h *Hosted) ListActiveBioLinks(ctx context.Context, profileID string) ([]*model.BioLink, error) {
	var links []*model.BioLink
	err := h.client.From("bio_links").
		Select().
		Eq("profile_id", profileID).
		Is("is_active", "true").
		Order("order_index", true).
		Execute(ctx, &links)
	if err != nil {
		return nil, mapHostedError(err, "list bio links")
	}
	return links, nil
}

// ListDeals returns a user's brand deals, newest first.
func (h *Hosted) ListDeals(ctx context.Context, userID string) ([]*model.Deal, error) {
	var deals []*model.Deal
	err := h.client.From("brand_deals").
		Select("id", "user_id", "brand_name", "deal_value", "currency", "status", "payment_status", "end_date", "created_at").
		Eq("user_id", userID).
		Order("created_at", false).
		Execute(ctx, &deals)
	if err != nil {
		return nil, mapHostedError(err, "list deals")
	}
	return deals, nil
}

// ListRecentRateCalculations returns a user's latest rate calculations.
func (h *Hosted) ListRecentRateCalculations(ctx context.Context, userID string, limit int) ([]*model.RateCalculation, error) {
	var calcs []*model.RateCalculation
	err := h.client.From("rate_calculations").
		Select("id", "user_id", "platform", "followers", "estimated_min", "estimated_max", "calculated_at").
		Eq("user_id", userID).
		Order("calculated_at", false).
		Limit(limit).
		Execute(ctx, &calcs)
	if err != nil {
		return nil, mapHostedError(err, "list rate calculations")
	}
	return calcs, nil
}

// CreateRateCalculation inserts an estimate and fills in the id and
// timestamp from the returned row.
func (h *Hosted) CreateRateCalculation(ctx context.Context, calc *model.RateCalculation) error {
	row := map[string]any{
		"user_id":         calc.UserID,
		"platform":        calc.Platform,
		"followers":       calc.Followers,
		"engagement_rate": calc.EngagementRate,
		"estimated_min":   calc.EstimatedMin,
		"estimated_max":   calc.EstimatedMax,
	}
	var created []*model.RateCalculation
	if err := h.client.From("rate_calculations").Insert(ctx, row, &created); err != nil {
		return mapHostedError(err, "create rate calculation")
	}
	if len(created) == 1 {
		calc.ID = created[0].ID
		calc.CalculatedAt = created[0].CalculatedAt
	}
	return nil
}

// CreateWaitlistEntry inserts a waitlist row. A repeated email returns ErrDuplicate.
func (h *Hosted) CreateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	row := map[string]any{
		"email":           entry.Email,
		"source":          entry.Source,
		"score_at_signup": entry.ScoreAtSignup,
	}
	if err := h.client.From("waitlist").Insert(ctx, row, nil); err != nil {
		return mapHostedError(err, "create waitlist entry")
	}
	return nil
}

// CreateEvent appends to the event stream.
func (h *Hosted) CreateEvent(ctx context.Context, event *model.Event) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	row := map[string]any{
		"user_id":    event.UserID,
		"event_type": event.EventType,
		"payload":    payload,
	}
	if event.ID != "" {
		row["id"] = event.ID
	}
	if err := h.client.From("event_stream").Insert(ctx, row, nil); err != nil {
		return mapHostedError(err, "create event")
	}
	return nil
}
