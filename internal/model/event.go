package model

// Event types appended to the event stream.
const (
	EventSubscriptionCreated  = "subscription_created"
	EventSubscriptionUpdated  = "subscription_updated"
	EventSubscriptionCanceled = "subscription_canceled"
	EventPaymentSucceeded     = "payment_succeeded"
	EventPaymentFailed        = "payment_failed"
	EventWaitlistJoined       = "waitlist_joined"
)

// Event is an append-only activity record (table event_stream).
type Event struct {
	ID        string         `json:"id,omitempty"`
	UserID    *string        `json:"user_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent builds an event; an empty userID is stored as NULL.
func NewEvent(userID, eventType string, payload map[string]any) *Event {
	e := &Event{EventType: eventType, Payload: payload}
	if userID != "" {
		e.UserID = &userID
	}
	return e
}
