package rules

import (
	"strings"
	"unicode/utf8"

	"github.com/market-scout/scout-backend/models"
)

// ConditionRule binds one condition to its keyword set, Hebrew and English.
type ConditionRule struct {
	Condition models.Condition
	Keywords  []string
}

// conditionTable is ordered from most to least specific wording; matching is
// longest-keyword so "כמו חדש" (like new) beats the bare "חדש" (new).
var conditionTable = []ConditionRule{
	{Condition: models.ConditionLikeNew, Keywords: []string{
		"כמו חדש", "like new", "barely used", "open box",
	}},
	{Condition: models.ConditionNew, Keywords: []string{
		"חדש באריזה", "brand new", "חדש", "new", "sealed", "באריזה",
	}},
	{Condition: models.ConditionExcellent, Keywords: []string{
		"מצוין", "מעולה", "excellent", "mint",
	}},
	{Condition: models.ConditionGood, Keywords: []string{
		"מצב טוב", "טוב", "good condition", "good", "working",
	}},
	{Condition: models.ConditionFair, Keywords: []string{
		"סביר", "fair", "average", "used",
	}},
	{Condition: models.ConditionPoor, Keywords: []string{
		"גרוע", "poor", "bad condition", "scratched",
	}},
	{Condition: models.ConditionForParts, Keywords: []string{
		"לחלקים", "for parts", "not working", "לא עובד", "broken", "faulty",
	}},
}

// ConditionRules returns the condition table.
func ConditionRules() []ConditionRule {
	return conditionTable
}

// MatchCondition scans text for condition keywords, longest match wins. When
// nothing matches it returns the lowest-confidence default (good) with
// confident=false so the scoring engine can discount the condition weight.
func MatchCondition(text string) (condition models.Condition, confident bool) {
	lowered := strings.ToLower(text)

	best := models.ConditionGood
	bestLen := 0
	for _, rule := range conditionTable {
		for _, keyword := range rule.Keywords {
			if !strings.Contains(lowered, keyword) {
				continue
			}
			kwLen := utf8.RuneCountInString(keyword)
			if kwLen > bestLen {
				best = rule.Condition
				bestLen = kwLen
			}
		}
	}
	if bestLen == 0 {
		return models.ConditionGood, false
	}
	return best, true
}
