package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the marketplace a listing was scraped from.
type Platform string

const (
	PlatformYad2     Platform = "yad2"
	PlatformFacebook Platform = "facebook"
)

// AllPlatforms lists every supported marketplace.
var AllPlatforms = []Platform{PlatformYad2, PlatformFacebook}

// IsValid reports whether p is a supported platform.
func (p Platform) IsValid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// Category is the closed set of component categories a listing can normalize to.
// Unrecognized text always maps to CategoryOther, never an error.
type Category string

const (
	CategoryCPU           Category = "cpu"
	CategoryGPU           Category = "gpu"
	CategoryMotherboard   Category = "motherboard"
	CategoryRAM           Category = "ram"
	CategoryStorage       Category = "storage"
	CategoryPSU           Category = "psu"
	CategoryCooling       Category = "cooling"
	CategoryCase          Category = "case"
	CategoryCompleteBuild Category = "complete_build"
	CategoryOther         Category = "other"
)

// AllCategories lists every valid category in table order.
var AllCategories = []Category{
	CategoryCPU, CategoryGPU, CategoryMotherboard, CategoryRAM,
	CategoryStorage, CategoryPSU, CategoryCooling, CategoryCase,
	CategoryCompleteBuild, CategoryOther,
}

// IsValid reports whether c is a member of the closed category set.
func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Condition is the closed set of product conditions.
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionLikeNew   Condition = "like_new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
	ConditionForParts  Condition = "for_parts"
)

// AllConditions lists every valid condition from best to worst.
var AllConditions = []Condition{
	ConditionNew, ConditionLikeNew, ConditionExcellent, ConditionGood,
	ConditionFair, ConditionPoor, ConditionForParts,
}

// IsValid reports whether c is a member of the closed condition set.
func (c Condition) IsValid() bool {
	for _, known := range AllConditions {
		if c == known {
			return true
		}
	}
	return false
}

// Rank returns an ordinal for the condition, 0 = best (new). Unknown
// conditions rank below for_parts.
func (c Condition) Rank() int {
	for i, known := range AllConditions {
		if c == known {
			return i
		}
	}
	return len(AllConditions)
}

// Listing is the canonical record produced by normalization. The
// (Platform, SourceID) pair is the sole dedup key; a listing is created on
// first observation, mutated only through merge, and never deleted - stale
// listings are flagged inactive instead so trend history survives.
type Listing struct {
	ID       uuid.UUID `json:"id"`
	Platform Platform  `json:"platform"`
	SourceID string    `json:"source_id"`

	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Condition   Condition `json:"condition"`
	// ConditionConfident is false when no condition keyword matched and the
	// default was applied; the scoring engine discounts the condition
	// multiplier accordingly.
	ConditionConfident bool   `json:"condition_confident"`
	Brand              string `json:"brand,omitempty"`
	Model              string `json:"model,omitempty"`

	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	WarrantyMonths int     `json:"warranty_months"`
	// VRAMGb is only meaningful for gpu and complete_build listings; zero
	// means not extracted.
	VRAMGb int `json:"vram_gb,omitempty"`

	City   string `json:"city,omitempty"`
	Region string `json:"region,omitempty"`

	URL        string     `json:"url,omitempty"`
	SellerName string     `json:"seller_name,omitempty"`
	PostedDate *time.Time `json:"posted_date,omitempty"`

	FirstSeenDate time.Time `json:"first_seen_date"`
	LastSeenDate  time.Time `json:"last_seen_date"`
	IsActive      bool      `json:"is_active"`
}

// IdentityKey returns the dedup key in "platform:source_id" form, used for
// per-key serialization of concurrent upserts.
func (l *Listing) IdentityKey() string {
	return string(l.Platform) + ":" + l.SourceID
}

// UpsertOutcome reports whether an upsert created a new listing or merged
// into an existing one.
type UpsertOutcome string

const (
	UpsertInserted UpsertOutcome = "inserted"
	UpsertUpdated  UpsertOutcome = "updated"
)
