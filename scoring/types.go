package scoring

import (
	"math"
	"unicode/utf8"
)

// ScoreFactor is one scored rubric line item. Explanation embeds the measured
// value behind the tier decision so downstream consumers (recommendations,
// email reports) can surface it without recomputing.
type ScoreFactor struct {
	Name        string `json:"name"`
	Points      int    `json:"pointsAwarded"`
	Explanation string `json:"explanation"`
}

// Evaluation is the result of running one scoring component over a page.
// Immutable once returned.
type Evaluation struct {
	Score        int             `json:"normalizedScore"`
	RawPoints    int             `json:"rawPoints"`
	RawPointsMax int             `json:"rawPointsMax"`
	Factors      []ScoreFactor   `json:"factors"`
	Flags        map[string]bool `json:"derivedFlags"`
}

// normalize converts raw rubric points to a 0-100 score.
func normalize(raw, max int) int {
	if max <= 0 {
		return 0
	}
	score := int(math.Round(float64(raw) / float64(max) * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// OrderFactors re-sorts factors into the canonical display order given by
// names. Names absent from the canonical list are dropped, canonical names
// absent from the input are omitted rather than synthesized, and the relative
// order of entries sharing a name is preserved. Display-only: point values
// are untouched.
func OrderFactors(names []string, factors []ScoreFactor) []ScoreFactor {
	ordered := make([]ScoreFactor, 0, len(factors))
	for _, name := range names {
		for _, f := range factors {
			if f.Name == name {
				ordered = append(ordered, f)
			}
		}
	}
	return ordered
}

func sumPoints(factors []ScoreFactor) int {
	total := 0
	for _, f := range factors {
		total += f.Points
	}
	return total
}

// Length tiers count characters, not bytes.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
