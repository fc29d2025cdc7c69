package services

import (
	"time"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/rules"
)

// ScoringConfig holds every knob of the resale-value formula. Scoring takes
// the config explicitly so two configs can be compared over the same data.
type ScoringConfig struct {
	// Component weights, expected to sum to 1.
	WeightCPU   float64 `json:"weight_cpu"`
	WeightGPU   float64 `json:"weight_gpu"`
	WeightOther float64 `json:"weight_other"`

	// Benchmark score used when the table has no entry for the listing's
	// brand/model. Scores using it are flagged low-confidence.
	DefaultBenchmarkScore float64 `json:"default_benchmark_score"`

	// VRAM at or below the threshold triggers the penalty factor for gpu and
	// complete_build listings.
	VRAMThresholdGb   int     `json:"vram_threshold_gb"`
	VRAMPenaltyFactor float64 `json:"vram_penalty_factor"`

	// Condition-warranty multiplier curve.
	ConditionFactor    map[models.Condition]float64 `json:"condition_factor"`
	ConfidenceDiscount float64                      `json:"confidence_discount"`
	WarrantyPerMonth   float64                      `json:"warranty_per_month"`
	WarrantyCap        float64                      `json:"warranty_cap"`

	// Market liquidity curve.
	CategoryLiquidity map[models.Category]float64 `json:"category_liquidity"`
	StalenessPerDay   float64                     `json:"staleness_per_day"`
	StalenessFloor    float64                     `json:"staleness_floor"`

	// Platform longevity score per category.
	UpgradePotential map[models.Category]float64 `json:"upgrade_potential"`
}

// DefaultScoringConfig returns the baseline configuration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		WeightCPU:   0.4,
		WeightGPU:   0.5,
		WeightOther: 0.1,

		DefaultBenchmarkScore: 50,

		VRAMThresholdGb:   8,
		VRAMPenaltyFactor: 0.85,

		ConditionFactor: map[models.Condition]float64{
			models.ConditionNew:       1.0,
			models.ConditionLikeNew:   0.95,
			models.ConditionExcellent: 0.9,
			models.ConditionGood:      0.8,
			models.ConditionFair:      0.65,
			models.ConditionPoor:      0.45,
			models.ConditionForParts:  0.2,
		},
		ConfidenceDiscount: 0.9,
		WarrantyPerMonth:   0.01,
		WarrantyCap:        1.25,

		CategoryLiquidity: map[models.Category]float64{
			models.CategoryCPU:           0.9,
			models.CategoryGPU:           1.0,
			models.CategoryMotherboard:   0.7,
			models.CategoryRAM:           0.8,
			models.CategoryStorage:       0.75,
			models.CategoryPSU:           0.6,
			models.CategoryCooling:       0.5,
			models.CategoryCase:          0.4,
			models.CategoryCompleteBuild: 0.85,
			models.CategoryOther:         0.3,
		},
		StalenessPerDay: 0.01,
		StalenessFloor:  0.4,

		UpgradePotential: map[models.Category]float64{
			models.CategoryCPU:           0.8,
			models.CategoryGPU:           1.0,
			models.CategoryMotherboard:   0.6,
			models.CategoryRAM:           0.7,
			models.CategoryStorage:       0.75,
			models.CategoryPSU:           0.65,
			models.CategoryCooling:       0.5,
			models.CategoryCase:          0.45,
			models.CategoryCompleteBuild: 0.9,
			models.CategoryOther:         0.4,
		},
	}
}

// ScoringEngine computes resale-value scores. It holds no mutable state;
// Score is deterministic for a fixed listing, config and evaluation time.
type ScoringEngine struct{}

func NewScoringEngine() *ScoringEngine {
	return &ScoringEngine{}
}

// Score computes the score for a listing at the current time.
func (e *ScoringEngine) Score(listing models.Listing, cfg ScoringConfig) models.Score {
	return e.ScoreAt(listing, cfg, time.Now())
}

// ScoreAt computes the score for a listing as of the given evaluation time.
//
// RVI multiplies the weighted component score by upgrade potential, market
// liquidity, the condition multiplier and the vram penalty. PVR = RVI/price
// and final = PVR x 1000. A non-positive price yields a stored but invalid
// score that is excluded from ranking.
func (e *ScoringEngine) ScoreAt(listing models.Listing, cfg ScoringConfig, now time.Time) models.Score {
	score := models.Score{
		ListingID:  listing.ID,
		ComputedAt: now,
		Valid:      listing.Price > 0,
	}

	benchmark, found := rules.BenchmarkScore(listing.Brand, listing.Model)
	if !found {
		benchmark = cfg.DefaultBenchmarkScore
		score.LowConfidence = true
	}

	component := e.componentScore(listing.Category, benchmark, cfg)
	pls := lookupCurve(cfg.UpgradePotential, listing.Category, 0.4)
	mli := e.liquidityMultiplier(listing, cfg, now)
	cwm := e.conditionMultiplier(listing, cfg, &score)

	penalty := 1.0
	if vramPenaltyApplies(listing, cfg) {
		penalty = cfg.VRAMPenaltyFactor
		score.VRAMPenaltyApplied = true
	}

	score.RVI = component * pls * mli * cwm * penalty

	if score.Valid {
		score.PVR = score.RVI / listing.Price
		score.FinalScore = score.PVR * 1000
	}

	return score
}

// componentScore places the benchmark value in the weight slot matching the
// listing's category. Complete builds use the gpu slot since the graphics
// card dominates a build's resale value.
func (e *ScoringEngine) componentScore(category models.Category, benchmark float64, cfg ScoringConfig) float64 {
	switch category {
	case models.CategoryCPU:
		return benchmark * cfg.WeightCPU
	case models.CategoryGPU, models.CategoryCompleteBuild:
		return benchmark * cfg.WeightGPU
	default:
		return benchmark * cfg.WeightOther
	}
}

// liquidityMultiplier combines per-category liquidity with a staleness decay
// over days listed, clamped at the configured floor.
func (e *ScoringEngine) liquidityMultiplier(listing models.Listing, cfg ScoringConfig, now time.Time) float64 {
	liquidity := lookupCurve(cfg.CategoryLiquidity, listing.Category, 0.3)

	staleness := 1.0
	if !listing.FirstSeenDate.IsZero() && now.After(listing.FirstSeenDate) {
		daysListed := now.Sub(listing.FirstSeenDate).Hours() / 24
		staleness = 1 - daysListed*cfg.StalenessPerDay
		if staleness < cfg.StalenessFloor {
			staleness = cfg.StalenessFloor
		}
	}

	return liquidity * staleness
}

// conditionMultiplier applies the condition factor and a capped warranty
// bonus. A defaulted condition takes the confidence discount and marks the
// score low-confidence.
func (e *ScoringEngine) conditionMultiplier(listing models.Listing, cfg ScoringConfig, score *models.Score) float64 {
	factor, ok := cfg.ConditionFactor[listing.Condition]
	if !ok {
		factor = cfg.ConditionFactor[models.ConditionGood]
	}

	warrantyBonus := 1 + float64(listing.WarrantyMonths)*cfg.WarrantyPerMonth
	if warrantyBonus > cfg.WarrantyCap {
		warrantyBonus = cfg.WarrantyCap
	}

	cwm := factor * warrantyBonus
	if !listing.ConditionConfident {
		cwm *= cfg.ConfidenceDiscount
		score.LowConfidence = true
	}

	return cwm
}

func vramPenaltyApplies(listing models.Listing, cfg ScoringConfig) bool {
	if listing.Category != models.CategoryGPU && listing.Category != models.CategoryCompleteBuild {
		return false
	}
	return listing.VRAMGb > 0 && listing.VRAMGb <= cfg.VRAMThresholdGb
}

func lookupCurve[K comparable](table map[K]float64, key K, fallback float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}
