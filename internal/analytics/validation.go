package analytics

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/logicloom/logicloom/internal/model"
)

const maxPayloadKeys = 32

var (
	errInvalidFormat = errors.New("payload field missing or not a string")
	errUnmarshal     = errors.New("unmarshal payload")
)

var knownEventTypes = map[string]bool{
	model.EventSubscriptionCreated:  true,
	model.EventSubscriptionUpdated:  true,
	model.EventSubscriptionCanceled: true,
	model.EventPaymentSucceeded:     true,
	model.EventPaymentFailed:        true,
	model.EventWaitlistJoined:       true,
}

// ValidatePayload checks a decoded stream entry before it is written.
func ValidatePayload(p EventPayload) error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := uuid.Parse(p.ID); err != nil {
		return fmt.Errorf("id must be a uuid")
	}
	if !knownEventTypes[p.EventType] {
		return fmt.Errorf("unknown event type %q", p.EventType)
	}
	if p.UserID != nil && *p.UserID == "" {
		return fmt.Errorf("user id must be omitted, not empty")
	}
	if len(p.Payload) > maxPayloadKeys {
		return fmt.Errorf("payload has too many keys")
	}
	if p.At <= 0 {
		return fmt.Errorf("timestamp must be set")
	}
	return nil
}

// failureReason names the dead-letter reason for a decode error.
func failureReason(err error) string {
	switch {
	case errors.Is(err, errInvalidFormat):
		return "invalid_format"
	case errors.Is(err, errUnmarshal):
		return "unmarshal_error"
	default:
		return "validation_error"
	}
}
