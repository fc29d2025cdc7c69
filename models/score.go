package models

import (
	"time"

	"github.com/google/uuid"
)

// Score is the derived resale-value assessment for a single listing. It is a
// pure function of the listing and a scoring config, recomputed from scratch
// whenever the listing's scored fields change - never patched incrementally.
type Score struct {
	ListingID uuid.UUID `json:"listing_id"`

	// RVI is the Resale Value Index: the weighted component score adjusted
	// by the platform, liquidity and condition multipliers.
	RVI float64 `json:"rvi"`
	// PVR is RVI divided by price. Zero and meaningless when Valid is false.
	PVR float64 `json:"pvr"`
	// FinalScore is PVR scaled by 1000 for readability.
	FinalScore float64 `json:"final_score"`

	VRAMPenaltyApplied bool `json:"vram_penalty_applied"`
	// LowConfidence is set when the benchmark table had no entry for the
	// listing's brand/model or the condition was defaulted during
	// normalization.
	LowConfidence bool `json:"low_confidence"`
	// Valid is false when price <= 0; such scores are excluded from ranking
	// and aggregation but still stored.
	Valid bool `json:"valid"`

	ComputedAt time.Time `json:"computed_at"`
}
