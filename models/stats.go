package models

import "time"

// GroupStat is one row of a grouped aggregation (by category or city).
// Avg/Min/Max cover only valid listings (price > 0); InvalidCount reports how
// many rows in the group were excluded.
type GroupStat struct {
	GroupKey     string  `json:"group_key"`
	Count        int     `json:"count"`
	AvgPrice     float64 `json:"avg_price"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	InvalidCount int     `json:"invalid_count"`
}

// TrendPoint is one day-bucket of a price trend series. Buckets with no
// samples are still emitted with SampleCount = 0 so the series always has a
// fixed length.
type TrendPoint struct {
	DateBucket  time.Time `json:"date_bucket"`
	AvgPrice    float64   `json:"avg_price"`
	SampleCount int       `json:"sample_count"`
}

// ListingFilter narrows query and aggregation reads. Zero values mean "no
// constraint".
type ListingFilter struct {
	Category   Category  `json:"category,omitempty"`
	Condition  Condition `json:"condition,omitempty"`
	City       string    `json:"city,omitempty"`
	Platform   Platform  `json:"platform,omitempty"`
	MinPrice   float64   `json:"min_price,omitempty"`
	MaxPrice   float64   `json:"max_price,omitempty"`
	SearchText string    `json:"search_text,omitempty"`
	ActiveOnly bool      `json:"active_only,omitempty"`
}

// Page holds offset/limit pagination and an optional sort key. The store
// clamps Limit to its documented maximum and orders by last_seen_date
// descending when SortKey is empty.
type Page struct {
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	SortKey string `json:"sort_key,omitempty"`
}

// BatchReport summarizes one ingestion batch. Per-record failures are
// isolated: dropped records are counted and logged, never fatal to the batch.
type BatchReport struct {
	Total       int            `json:"total"`
	Inserted    int            `json:"inserted"`
	Updated     int            `json:"updated"`
	Dropped     int            `json:"dropped"`
	Duration    time.Duration  `json:"duration"`
	DropReasons map[string]int `json:"drop_reasons,omitempty"`
}
