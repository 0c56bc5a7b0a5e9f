package repository

import (
	"context"
	"fmt"

	"github.com/logicloom/logicloom/internal/model"
)

// CreateWaitlistEntry inserts a waitlist row. A repeated email returns ErrDuplicate.
func (r *Repository) CreateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	if entry.ID == "" {
		entry.ID = newID()
	}

	query := `
		INSERT INTO waitlist (id, email, source, score_at_signup)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, entry.ID, entry.Email, entry.Source, entry.ScoreAtSignup)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

// CreateEvent appends to the event stream. Re-inserting an existing id
// returns ErrDuplicate.
func (r *Repository) CreateEvent(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = newID()
	}
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	query := `
		INSERT INTO event_stream (id, user_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.pool.Exec(ctx, query, event.ID, event.UserID, event.EventType, payload); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}
