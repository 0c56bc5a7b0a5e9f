package model

// WaitlistSourceSimulator tags entries coming from the revenue simulator form.
const WaitlistSourceSimulator = "simulator"

// WaitlistEntry is an email signed up for premium features (table waitlist).
type WaitlistEntry struct {
	ID            string   `json:"id,omitempty"`
	Email         string   `json:"email"`
	Source        string   `json:"source"`
	ScoreAtSignup *float64 `json:"score_at_signup"`
}
