package models

import "time"

// RawRecord is the free-text record handed off by a scraper adapter. Only
// Platform and SourceID are mandatory; everything else is best-effort text
// the normalizer turns into canonical fields.
type RawRecord struct {
	Platform      Platform   `json:"platform"`
	SourceID      string     `json:"source_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	PriceText     string     `json:"price_text"`
	LocationText  string     `json:"location_text"`
	ConditionText string     `json:"condition_text,omitempty"`
	WarrantyText  string     `json:"warranty_text,omitempty"`
	PostedDate    *time.Time `json:"posted_date,omitempty"`
	URL           string     `json:"url,omitempty"`
	SellerName    string     `json:"seller_name,omitempty"`
}
