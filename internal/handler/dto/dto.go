// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PortalResponse is returned by POST /api/portal.
type PortalResponse struct {
	URL string `json:"url"`
}

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	Plan     string `json:"plan"`
	Interval string `json:"interval"`
}

// CheckoutResponse is returned by POST /api/checkout.
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// WebhookResponse acknowledges a billing webhook delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// WaitlistRequest is the body of POST /api/waitlist.
type WaitlistRequest struct {
	Email string   `json:"email"`
	Score *float64 `json:"score,omitempty"`
}

// WaitlistResponse is returned by POST /api/waitlist.
type WaitlistResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
