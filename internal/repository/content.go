package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/logicloom/logicloom/internal/model"
)

// ListActiveBioLinks returns a profile's active links in ascending order_index.
func (r *Repository) ListActiveBioLinks(ctx context.Context, profileID string) ([]*model.BioLink, error) {
	query := `
		SELECT id, profile_id, title, url, order_index, is_active
		FROM bio_links
		WHERE profile_id = $1 AND is_active = true
		ORDER BY order_index ASC
	`

	rows, err := r.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bio links: %w", err)
	}

	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.BioLink, error) {
		var l model.BioLink
		err := row.Scan(&l.ID, &l.ProfileID, &l.Title, &l.URL, &l.OrderIndex, &l.IsActive)
		return &l, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan bio links: %w", err)
	}
	return links, nil
}

// ListDeals returns a user's brand deals, newest first.
func (r *Repository) ListDeals(ctx context.Context, userID string) ([]*model.Deal, error) {
	query := `
		SELECT id, user_id, brand_name, deal_value, currency, status,
			payment_status, end_date::text, created_at
		FROM brand_deals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	deals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Deal, error) {
		var d model.Deal
		err := row.Scan(
			&d.ID,
			&d.UserID,
			&d.BrandName,
			&d.DealValue,
			&d.Currency,
			&d.Status,
			&d.PaymentStatus,
			&d.EndDate,
			&d.CreatedAt,
		)
		return &d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan deals: %w", err)
	}
	return deals, nil
}

// ListRecentRateCalculations returns a user's latest rate calculations.
func (r *Repository) ListRecentRateCalculations(ctx context.Context, userID string, limit int) ([]*model.RateCalculation, error) {
	query := `
		SELECT id, user_id, platform, followers, estimated_min, estimated_max, calculated_at
		FROM rate_calculations
		WHERE user_id = $1
		ORDER BY calculated_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rate calculations: %w", err)
	}

	calcs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.RateCalculation, error) {
		var c model.RateCalculation
		err := row.Scan(&c.ID, &c.UserID, &c.Platform, &c.Followers, &c.EstimatedMin, &c.EstimatedMax, &c.CalculatedAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan rate calculations: %w", err)
	}
	return calcs, nil
}

// CreateRateCalculation saves an estimate and fills in its id and timestamp.
func (r *Repository) CreateRateCalculation(ctx context.Context, calc *model.RateCalculation) error {
	query := `
		INSERT INTO rate_calculations (user_id, platform, followers, engagement_rate, estimated_min, estimated_max)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, calculated_at
	`

	err := r.pool.QueryRow(ctx, query,
		calc.UserID,
		calc.Platform,
		calc.Followers,
		calc.EngagementRate,
		calc.EstimatedMin,
		calc.EstimatedMax,
	).Scan(&calc.ID, &calc.CalculatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rate calculation: %w", err)
	}
	return nil
}
