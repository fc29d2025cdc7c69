package rules

import (
	"regexp"
	"strings"

	"github.com/market-scout/scout-backend/models"
)

// BrandPattern extracts a brand and canonical model string from listing text.
// Patterns are keyed by category; extraction failure leaves brand/model empty
// and is never an error.
type BrandPattern struct {
	Brand   string
	Pattern *regexp.Regexp
}

var brandPatterns = map[models.Category][]BrandPattern{
	models.CategoryCPU: {
		{Brand: "Intel", Pattern: regexp.MustCompile(`(?i)\b(i[3579][- ]?\d{4,5}[a-z]{0,2})\b`)},
		{Brand: "AMD", Pattern: regexp.MustCompile(`(?i)\b(ryzen\s*[3579]\s*\d{4}[a-z0-9]{0,3})\b`)},
	},
	models.CategoryGPU: {
		{Brand: "NVIDIA", Pattern: regexp.MustCompile(`(?i)\b((?:rtx|gtx)\s*\d{3,4}(?:\s*(?:ti|super))?)\b`)},
		{Brand: "AMD", Pattern: regexp.MustCompile(`(?i)\b(rx\s*\d{3,4}(?:\s*xt)?)\b`)},
	},
	models.CategoryMotherboard: {
		{Brand: "ASUS", Pattern: regexp.MustCompile(`(?i)\b(rog\s*strix\s*[a-z]\d{3}[a-z0-9-]*|tuf\s*gaming\s*[a-z]\d{3}[a-z0-9-]*)\b`)},
		{Brand: "MSI", Pattern: regexp.MustCompile(`(?i)\b(mag\s*[a-z]\d{3}[a-z0-9-]*|mpg\s*[a-z]\d{3}[a-z0-9-]*)\b`)},
	},
	models.CategoryRAM: {
		{Brand: "Corsair", Pattern: regexp.MustCompile(`(?i)\b(vengeance(?:\s*lpx|\s*rgb)?)\b`)},
		{Brand: "Kingston", Pattern: regexp.MustCompile(`(?i)\b(fury(?:\s*beast|\s*renegade)?)\b`)},
	},
	models.CategoryStorage: {
		{Brand: "Samsung", Pattern: regexp.MustCompile(`(?i)\b(9[78]0\s*(?:evo|pro)(?:\s*plus)?)\b`)},
		{Brand: "WD", Pattern: regexp.MustCompile(`(?i)\b(wd\s*(?:black|blue|green)\s*sn\d{3})\b`)},
	},
}

// complete builds carry their headline GPU or CPU as the model
func init() {
	brandPatterns[models.CategoryCompleteBuild] = append(
		brandPatterns[models.CategoryGPU], brandPatterns[models.CategoryCPU]...)
}

var modelSpaces = regexp.MustCompile(`\s+`)

// ExtractBrandModel runs the category's patterns over text and returns the
// first brand plus a canonicalized model (uppercase, single-spaced). Both are
// empty when nothing matches.
func ExtractBrandModel(category models.Category, text string) (brand, model string) {
	patterns, ok := brandPatterns[category]
	if !ok {
		return "", ""
	}
	for _, bp := range patterns {
		match := bp.Pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		model = strings.ToUpper(strings.TrimSpace(match[1]))
		model = modelSpaces.ReplaceAllString(model, " ")
		// "RTX3070" and "RTX 3070" canonicalize identically.
		model = normalizeModelSpacing(model)
		return bp.Brand, model
	}
	return "", ""
}

var (
	modelPrefix = regexp.MustCompile(`^(RTX|GTX|RX)(\d)`)
	intelDash   = regexp.MustCompile(`^(I[3579]) (\d)`)
)

func normalizeModelSpacing(model string) string {
	model = modelPrefix.ReplaceAllString(model, "$1 $2")
	return intelDash.ReplaceAllString(model, "$1-$2")
}

var vramPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*GB\b`)

var gpuToken = regexp.MustCompile(`(?i)\b(rtx|gtx|rx|vram|gpu)\b`)

// ExtractVRAM pulls a VRAM capacity in GB out of GPU or complete-build text.
// Returns 0 when no plausible figure is present. Values above 48 GB are
// treated as RAM/storage mentions, not VRAM. For complete builds, where RAM
// and storage sizes compete, only a figure preceded by a GPU token counts.
func ExtractVRAM(category models.Category, text string) int {
	if category != models.CategoryGPU && category != models.CategoryCompleteBuild {
		return 0
	}
	for _, loc := range vramPattern.FindAllStringSubmatchIndex(text, -1) {
		gb := 0
		for _, ch := range text[loc[2]:loc[3]] {
			gb = gb*10 + int(ch-'0')
		}
		if gb < 1 || gb > 48 {
			continue
		}
		if category == models.CategoryCompleteBuild {
			start := loc[0] - 30
			if start < 0 {
				start = 0
			}
			if !gpuToken.MatchString(text[start:loc[0]]) {
				continue
			}
		}
		return gb
	}
	return 0
}
