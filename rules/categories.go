// Package rules holds the static lookup tables the normalizer and scoring
// engine are driven by: category and condition keyword tables, the city
// gazetteer, brand/model extraction patterns and the component benchmark
// table. Data and matching logic are kept separate so the tables can be
// unit-tested on their own.
package rules

import (
	"strings"
	"unicode/utf8"

	"github.com/market-scout/scout-backend/models"
)

// CategoryRule binds one category to its keyword set. Priority breaks ties
// when two categories match keywords of equal length; lower wins.
type CategoryRule struct {
	Category models.Category
	Priority int
	Keywords []string
}

// categoryTable covers Hebrew and English synonyms. complete_build sits at
// the highest priority so a full PC listing that also mentions its parts
// classifies as a build, and single-component categories follow in priority
// order.
var categoryTable = []CategoryRule{
	{Category: models.CategoryCompleteBuild, Priority: 1, Keywords: []string{
		"מחשב גיימינג", "מחשב נייח", "gaming pc", "full build", "complete build",
		"desktop pc", "מחשב מורכב", "computer",
	}},
	{Category: models.CategoryGPU, Priority: 2, Keywords: []string{
		"כרטיס מסך", "graphics card", "video card", "gpu", "nvidia", "geforce",
		"rtx", "gtx", "radeon",
	}},
	{Category: models.CategoryCPU, Priority: 3, Keywords: []string{
		"מעבד", "processor", "cpu", "ryzen", "intel core", "i3-", "i5-", "i7-", "i9-",
	}},
	{Category: models.CategoryMotherboard, Priority: 4, Keywords: []string{
		"לוח אם", "motherboard", "mainboard", "mobo",
	}},
	{Category: models.CategoryRAM, Priority: 5, Keywords: []string{
		"זיכרון", "memory", "ram", "ddr4", "ddr5", "dimm", "sodimm",
	}},
	{Category: models.CategoryStorage, Priority: 6, Keywords: []string{
		"אחסון", "hard drive", "ssd", "hdd", "nvme", "m.2", "דיסק קשיח",
	}},
	{Category: models.CategoryPSU, Priority: 7, Keywords: []string{
		"ספק כוח", "power supply", "psu",
	}},
	{Category: models.CategoryCooling, Priority: 8, Keywords: []string{
		"קירור", "cooler", "cooling", "radiator", "aio", "heatsink", "מאוורר",
	}},
	{Category: models.CategoryCase, Priority: 9, Keywords: []string{
		"מארז", "case", "chassis", "tower",
	}},
}

// CategoryRules returns the category table in priority order.
func CategoryRules() []CategoryRule {
	return categoryTable
}

// MatchCategory scans text against the category table. The category whose
// longest keyword appears in the text wins; ties break by table priority.
// Unmatched text maps to CategoryOther - never an error.
func MatchCategory(text string) models.Category {
	lowered := strings.ToLower(text)

	best := models.CategoryOther
	bestLen := 0
	bestPriority := 0
	for _, rule := range categoryTable {
		for _, keyword := range rule.Keywords {
			if !strings.Contains(lowered, keyword) {
				continue
			}
			// Keyword length in runes so Hebrew and English compete fairly.
			kwLen := utf8.RuneCountInString(keyword)
			if kwLen > bestLen || (kwLen == bestLen && (bestPriority == 0 || rule.Priority < bestPriority)) {
				best = rule.Category
				bestLen = kwLen
				bestPriority = rule.Priority
			}
		}
	}
	return best
}
