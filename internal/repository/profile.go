package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/logicloom/logicloom/internal/model"
)

const profileColumns = `id, username, full_name, avatar_url, bio, stripe_customer_id,
	subscription_status, subscription_plan, subscription_interval,
	stripe_subscription_id, subscription_period_end`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.FullName,
		&p.AvatarURL,
		&p.Bio,
		&p.StripeCustomerID,
		&p.SubscriptionStatus,
		&p.SubscriptionPlan,
		&p.SubscriptionInterval,
		&p.StripeSubscriptionID,
		&p.SubscriptionPeriodEnd,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile retrieves a profile by its (auth user) id.
func (r *Repository) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetProfileByUsername retrieves a profile by its public username.
func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by username: %w", err)
	}
	return p, nil
}

// SetStripeCustomerID stores the billing customer id on a profile.
func (r *Repository) SetStripeCustomerID(ctx context.Context, profileID, customerID string) error {
	query := `UPDATE profiles SET stripe_customer_id = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, profileID, customerID)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSubscription writes the non-nil fields of update to a profile.
func (r *Repository) UpdateSubscription(ctx context.Context, profileID string, update model.SubscriptionUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	args = append(args, profileID)
	for i, name := range names {
		sets[i] = name + " = $" + strconv.Itoa(i+2)
		args = append(args, cols[name])
	}

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
