package rules

import "strings"

// benchmarkTable maps canonical model names to a 0-100 performance score.
// Keys are the canonical form produced by ExtractBrandModel, lowercased.
// Figures follow relative positioning in public aggregate benchmarks; they
// feed the weighted component score, so only their ordering matters.
var benchmarkTable = map[string]float64{
	// CPUs
	"i3-12100f":    62,
	"i5-10400f":    70,
	"i5-12400f":    85,
	"i5-13600k":    92,
	"i7-12700k":    93,
	"i7-13700k":    96,
	"i9-12900k":    97,
	"i9-13900k":    99,
	"ryzen 5 3600": 72,
	"ryzen 5 5600": 84,
	"ryzen 5 7600": 90,
	"ryzen 7 5800": 89,
	"ryzen 7 7700": 94,
	"ryzen 9 5900": 95,
	"ryzen 9 7900": 98,

	// GPUs
	"gtx 1060":     48,
	"gtx 1070":     55,
	"gtx 1080":     62,
	"gtx 1650":     45,
	"gtx 1660":     55,
	"rtx 2060":     63,
	"rtx 2070":     70,
	"rtx 2080":     76,
	"rtx 3060":     72,
	"rtx 3060 ti":  78,
	"rtx 3070":     92,
	"rtx 3080":     95,
	"rtx 3090":     97,
	"rtx 4060":     80,
	"rtx 4070":     91,
	"rtx 4080":     97,
	"rtx 4090":     100,
	"rx 580":       42,
	"rx 6600":      70,
	"rx 6700 xt":   80,
	"rx 6800 xt":   90,
	"rx 7900 xt":   96,
}

// BenchmarkScore looks up the performance score for a normalized brand/model
// pair. The second return value is false when the table has no entry; the
// scoring engine then substitutes its configured default and flags the score
// low-confidence.
func BenchmarkScore(brand, model string) (float64, bool) {
	if model == "" {
		return 0, false
	}
	key := strings.ToLower(model)
	if score, ok := benchmarkTable[key]; ok {
		return score, ok
	}
	// Variant suffixes (5600X, 5800X3D) fall back to the base model entry.
	trimmed := strings.TrimRight(key, "abcdefghijklmnopqrstuvwxyz")
	if trimmed != key {
		if score, ok := benchmarkTable[strings.TrimSpace(trimmed)]; ok {
			return score, ok
		}
	}
	return 0, false
}

// BenchmarkTableSize is used by table sanity tests.
func BenchmarkTableSize() int {
	return len(benchmarkTable)
}
