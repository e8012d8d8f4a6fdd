package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw, max, want int
	}{
		{0, 130, 0},
		{130, 130, 100},
		{118, 130, 91},
		{19, 130, 15},
		{14, 150, 9},
		{150, 150, 100},
		{200, 150, 100}, // clamped
		{10, 0, 0},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, normalize(tt.raw, tt.max), "normalize(%d, %d)", tt.raw, tt.max)
	}
}

func TestOrderFactors(t *testing.T) {
	canonical := []string{"alpha", "beta", "gamma"}

	t.Run("re-sorts into canonical order", func(t *testing.T) {
		in := []ScoreFactor{{Name: "gamma"}, {Name: "alpha"}, {Name: "beta"}}
		out := OrderFactors(canonical, in)
		names := factorNames(out)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
	})

	t.Run("drops names outside the canonical list", func(t *testing.T) {
		in := []ScoreFactor{{Name: "beta"}, {Name: "rogue"}}
		out := OrderFactors(canonical, in)
		assert.Equal(t, []string{"beta"}, factorNames(out))
	})

	t.Run("never synthesizes missing entries", func(t *testing.T) {
		in := []ScoreFactor{{Name: "gamma"}}
		out := OrderFactors(canonical, in)
		assert.Equal(t, []string{"gamma"}, factorNames(out))
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []ScoreFactor{{Name: "gamma", Points: 3}, {Name: "alpha", Points: 1}}
		once := OrderFactors(canonical, in)
		twice := OrderFactors(canonical, once)
		assert.Equal(t, once, twice)
	})

	t.Run("keeps relative order of duplicate names", func(t *testing.T) {
		in := []ScoreFactor{{Name: "beta", Points: 1}, {Name: "beta", Points: 2}}
		out := OrderFactors(canonical, in)
		assert.Equal(t, 1, out[0].Points)
		assert.Equal(t, 2, out[1].Points)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, OrderFactors(canonical, nil))
	})
}

func TestFactorMaxLookups(t *testing.T) {
	assert.Equal(t, 15, TraditionalFactorMax("title_tag"))
	assert.Equal(t, 7, TraditionalFactorMax("canonical_tag"))
	assert.Equal(t, 0, TraditionalFactorMax("unknown"))

	med := MedicalVertical()
	assert.Equal(t, 20, med.FactorMax("voice_search"))
	assert.Equal(t, 18, med.FactorMax("faq_schema"))
	assert.Equal(t, 0, med.FactorMax("ai_search_ready"), "other vertical's voice name is unknown here")

	biz := BusinessVertical()
	assert.Equal(t, 20, biz.FactorMax("ai_search_ready"))
	assert.Equal(t, 13, biz.FactorMax("eeat_signals"))
}

func factorNames(factors []ScoreFactor) []string {
	names := make([]string, 0, len(factors))
	for _, f := range factors {
		names = append(names, f.Name)
	}
	return names
}
