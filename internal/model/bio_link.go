package model

// BioLink is one outbound link on a public bio page (table bio_links).
type BioLink struct {
	ID         string `json:"id"`
	ProfileID  string `json:"profile_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	OrderIndex int    `json:"order_index"`
	IsActive   bool   `json:"is_active"`
}
