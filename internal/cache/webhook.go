package cache

import (
	"context"
	"fmt"
	"time"
)

// WebhookEventTTL is how long a processed event id is remembered.
const WebhookEventTTL = 24 * time.Hour

func webhookEventKey(eventID string) string {
	return Key("stripe", "event", eventID)
}

// MarkEventProcessing records eventID and reports whether this is the first
// delivery seen within WebhookEventTTL.
func (c *Cache) MarkEventProcessing(ctx context.Context, eventID string) (bool, error) {
	ok, err := c.client.SetNX(ctx, webhookEventKey(eventID), time.Now().Unix(), WebhookEventTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark webhook event: %w", err)
	}
	return ok, nil
}

// ForgetEvent removes a mark so a redelivery of a failed event is processed again.
func (c *Cache) ForgetEvent(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, webhookEventKey(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to forget webhook event: %w", err)
	}
	return nil
}
