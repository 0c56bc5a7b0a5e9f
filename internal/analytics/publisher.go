// Package analytics buffers activity events through a Redis stream so
// request handlers never wait on the event_stream table.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/logicloom/logicloom/internal/cache"
	"github.com/logicloom/logicloom/internal/model"
)

const (
	// StreamKey is the Redis stream holding pending activity events.
	StreamKey = cache.KeyPrefix + "stream:events"

	// DeadLetterStreamKey receives entries that can never be written.
	DeadLetterStreamKey = StreamKey + ":dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout bounds a single XADD.
	PublishTimeout = 250 * time.Millisecond
)

// EventPayload is the stream encoding of a model.Event.
type EventPayload struct {
	ID        string         `json:"id"`
	UserID    *string        `json:"uid,omitempty"`
	EventType string         `json:"type"`
	Payload   map[string]any `json:"p,omitempty"`
	At        int64          `json:"t"` // Unix milliseconds
}

// Publisher appends activity events to the stream.
type Publisher struct {
	redis  *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher on the given client.
func NewPublisher(client *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		logger: logger.With("component", "analytics.publisher"),
		now:    time.Now,
	}
}

// Publish assigns the event an id when it has none and adds it to the stream.
func (p *Publisher) Publish(ctx context.Context, event *model.Event) (string, error) {
	if event.ID == "" {
		event.ID = NewEventID()
	}
	payload := EventPayload{
		ID:        event.ID,
		UserID:    event.UserID,
		EventType: event.EventType,
		Payload:   event.Payload,
		At:        p.now().UnixMilli(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	streamID, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"payload": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return streamID, nil
}

// NewEventID returns a time-ordered id in UUID form, matching the ids the
// Postgres store generates.
func NewEventID() string {
	return uuid.UUID(ulid.Make()).String()
}

// decodePayload parses and validates one stream entry.
func decodePayload(values map[string]interface{}) (*model.Event, time.Time, error) {
	raw, ok := values["payload"].(string)
	if !ok {
		return nil, time.Time{}, errInvalidFormat
	}
	var payload EventPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", errUnmarshal, err)
	}
	if err := ValidatePayload(payload); err != nil {
		return nil, time.Time{}, err
	}
	event := &model.Event{
		ID:        payload.ID,
		UserID:    payload.UserID,
		EventType: payload.EventType,
		Payload:   payload.Payload,
	}
	return event, time.UnixMilli(payload.At), nil
}
