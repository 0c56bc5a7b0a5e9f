package model

import "time"

// DealStatus is the pipeline stage of a brand deal.
type DealStatus string

const (
	DealProspect    DealStatus = "prospect"
	DealNegotiation DealStatus = "negotiation"
	DealActive      DealStatus = "active"
	DealCompleted   DealStatus = "completed"
	DealCancelled   DealStatus = "cancelled"
)

// Deal is a sponsorship tracked in the CRM pipeline (table brand_deals).
type Deal struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	BrandName     string     `json:"brand_name"`
	DealValue     float64    `json:"deal_value"`
	Currency      string     `json:"currency"`
	Status        DealStatus `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	EndDate       *string    `json:"end_date"`
	CreatedAt     time.Time  `json:"created_at"`
}
