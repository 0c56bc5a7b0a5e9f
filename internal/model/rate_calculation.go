package model

import "time"

// RateCalculation is a saved sponsorship rate estimate (table rate_calculations).
type RateCalculation struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
	Followers int64  `json:"followers"`
	// EngagementRate is a percentage, e.g. 3.5.
	EngagementRate float64   `json:"engagement_rate"`
	EstimatedMin   float64   `json:"estimated_min"`
	EstimatedMax   float64   `json:"estimated_max"`
	CalculatedAt   time.Time `json:"calculated_at"`
}
