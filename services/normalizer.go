package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/rules"
	"github.com/market-scout/scout-backend/shared"
)

// Normalizer turns free-text RawRecords into canonical Listings using the
// static rule tables. Normalize is pure: same input, same output, no I/O.
type Normalizer struct {
	priceCeiling float64
	metrics      *shared.ServiceMetrics
}

// NewNormalizer creates a normalizer with the given price sanity ceiling.
// Prices above the ceiling are treated as data-entry noise and rejected.
func NewNormalizer(priceCeiling float64) *Normalizer {
	if priceCeiling <= 0 {
		priceCeiling = 250000
	}
	return &Normalizer{
		priceCeiling: priceCeiling,
		metrics:      shared.NewServiceMetrics("normalizer"),
	}
}

var (
	priceDigits   = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)
	warrantyMonth = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:months?|חודשים|חודש)`)
	warrantyYear  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:years?|שנים|שנה)`)
)

// Normalize converts a raw scraped record into a canonical listing.
// Rule-table misses degrade gracefully (category other, condition good with
// low confidence, empty city); only a missing identity or an unusable price
// is an error, and the caller drops just that record.
func (n *Normalizer) Normalize(raw models.RawRecord) (models.Listing, error) {
	start := time.Now()

	if raw.Platform == "" || raw.SourceID == "" {
		n.metrics.RecordRequest(false, time.Since(start))
		return models.Listing{}, shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeMissingIdentity,
			"record is missing platform or source_id", "normalizer", "Normalize", false, nil)
	}

	combined := raw.Title + " " + raw.Description

	price, currency, err := n.parsePrice(raw.PriceText)
	if err != nil {
		n.metrics.RecordRequest(false, time.Since(start))
		return models.Listing{}, err
	}

	category := rules.MatchCategory(combined)

	conditionSource := raw.ConditionText
	if strings.TrimSpace(conditionSource) == "" {
		conditionSource = combined
	}
	condition, confident := rules.MatchCondition(conditionSource)

	city, region := rules.LookupCity(raw.LocationText)
	if city == "" && raw.LocationText != "" {
		logrus.WithFields(logrus.Fields{
			"platform":  raw.Platform,
			"source_id": raw.SourceID,
			"location":  raw.LocationText,
		}).Debug("Location text did not match the city gazetteer")
	}

	brand, model := rules.ExtractBrandModel(category, combined)
	vram := rules.ExtractVRAM(category, combined)

	listing := models.Listing{
		ID:                 uuid.New(),
		Platform:           raw.Platform,
		SourceID:           raw.SourceID,
		Title:              strings.TrimSpace(raw.Title),
		Description:        strings.TrimSpace(raw.Description),
		Category:           category,
		Condition:          condition,
		ConditionConfident: confident,
		Brand:              brand,
		Model:              model,
		Price:              price,
		Currency:           currency,
		WarrantyMonths:     parseWarrantyMonths(raw.WarrantyText, combined),
		VRAMGb:             vram,
		City:               city,
		Region:             region,
		URL:                raw.URL,
		SellerName:         strings.TrimSpace(raw.SellerName),
		PostedDate:         raw.PostedDate,
		IsActive:           true,
	}

	n.metrics.RecordRequest(true, time.Since(start))
	return listing, nil
}

// Metrics exposes the normalizer's service metrics.
func (n *Normalizer) Metrics() *shared.ServiceMetrics {
	return n.metrics
}

// parsePrice strips currency symbols and thousands separators and parses the
// first numeric run. Currency defaults to ILS unless a dollar or euro symbol
// appears in the text.
func (n *Normalizer) parsePrice(text string) (float64, string, error) {
	currency := "ILS"
	switch {
	case strings.Contains(text, "$") || strings.Contains(strings.ToUpper(text), "USD"):
		currency = "USD"
	case strings.Contains(text, "€") || strings.Contains(strings.ToUpper(text), "EUR"):
		currency = "EUR"
	}

	match := priceDigits.FindString(text)
	if match == "" {
		return 0, "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidPrice,
			fmt.Sprintf("no numeric price in %q", text), "normalizer", "parsePrice", false, nil)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidPrice,
			fmt.Sprintf("unparsable price %q", text), "normalizer", "parsePrice", false, err)
	}

	if value < 0 {
		return 0, "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidPrice,
			fmt.Sprintf("negative price %.2f", value), "normalizer", "parsePrice", false, nil)
	}
	if value > n.priceCeiling {
		return 0, "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidPrice,
			fmt.Sprintf("price %.2f above sanity ceiling %.0f", value, n.priceCeiling),
			"normalizer", "parsePrice", false, nil)
	}

	return value, currency, nil
}

// parseWarrantyMonths extracts a warranty duration from the dedicated
// warranty text, falling back to the combined listing text. Years are
// converted to months. No match means zero months.
func parseWarrantyMonths(warrantyText, combined string) int {
	for _, text := range []string{warrantyText, combined} {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if m := warrantyMonth.FindStringSubmatch(text); m != nil {
			months, _ := strconv.Atoi(m[1])
			return months
		}
		if m := warrantyYear.FindStringSubmatch(text); m != nil {
			years, _ := strconv.Atoi(m[1])
			return years * 12
		}
		// Bare "אחריות"/"warranty" mention with no duration counts as a
		// minimal 1-month signal.
		lower := strings.ToLower(text)
		if strings.Contains(lower, "warranty") || strings.Contains(text, "אחריות") {
			return 1
		}
	}
	return 0
}
