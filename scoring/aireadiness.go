package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/searchpulse/backend/extract"
)

// AIReadiness scores how citable a page is for generative answer engines:
// question-shaped headers, FAQ markup, authority signals, E-E-A-T cues.
// The rubric weights are fixed; vertical differences live in the
// RubricConfig.
type AIReadiness struct {
	cfg RubricConfig
}

func NewAIReadiness(cfg RubricConfig) *AIReadiness {
	return &AIReadiness{cfg: cfg}
}

// Config returns the rubric configuration the component was built with.
func (a *AIReadiness) Config() RubricConfig {
	return a.cfg
}

// Evaluate applies the AI-readiness rubric to one page's signals. Pure
// except for content_freshness, which reads the passed evaluation instant;
// identical signals and instant produce identical output.
func (a *AIReadiness) Evaluate(sig extract.PageSignals, evaluatedAt time.Time) Evaluation {
	lowerHTML := strings.ToLower(sig.RawHTML)

	hasStructuredData := len(sig.StructuredDataBlocks) > 0
	hasFaqSchema := false
	hasVerticalSchema := false
	for _, block := range sig.StructuredDataBlocks {
		lower := strings.ToLower(block)
		if strings.Contains(lower, "faqpage") {
			hasFaqSchema = true
		}
		if containsAnyFold(lower, a.cfg.SchemaTypes) {
			hasVerticalSchema = true
		}
	}

	questionCount := countQuestionPatterns(sig.RawHTML)
	hasFaqContent := hasFaqSchema || hasFaqHeading(sig.RawHTML) || questionCount >= 3
	hasConversational := headingsContainAny(sig.H1Headings, a.cfg.ConversationalTriggers) ||
		headingsContainAny(sig.H2Headings, a.cfg.ConversationalTriggers)
	hasFormatting := hasStructuredFormatting(sig.RawHTML)
	hasCitations := containsAnyFold(lowerHTML, a.cfg.CitationKeywords)
	hasHighQualityCitations := anyHrefMatches(sig.RawHTML, a.cfg.TrustedDomains)
	hasStatistics := hasStatisticsPattern(sig.RawHTML)
	eeatCount := countTrustIndicators(lowerHTML, a.cfg.TrustIndicators)
	imgTotal, imgWithAlt := imageAltStats(sig.RawHTML)
	coverage := altCoverage(imgTotal, imgWithAlt)
	internalLinks := countInternalLinks(sig.RawHTML)
	isFresh := hasRecentYear(sig.RawHTML, evaluatedAt)

	factors := []ScoreFactor{
		scoreConversationalHeaders(hasConversational, len(sig.H1Headings)),
		scoreStructure(len(sig.H2Headings)),
		scoreContentDepth(sig.WordCount),
		a.scoreSchemaPresence(hasVerticalSchema, hasFaqSchema, hasStructuredData),
		scoreFaqSchema(hasFaqSchema, hasFaqContent),
		a.scoreVoiceReadiness(questionCount),
		scoreAuthoritySignals(hasHighQualityCitations, hasCitations, hasStatistics),
		scorePerformance(sig.LoadTimeMs),
		a.scoreEEAT(eeatCount),
		a.scoreMetaOptimization(sig.Title, sig.MetaDescription),
		scoreAltCoverage(coverage, imgTotal),
		scoreInternalLinking(internalLinks),
		scoreFormatting(hasFormatting),
		scoreFreshness(isFresh, evaluatedAt),
	}
	factors = OrderFactors(a.cfg.FactorOrder(), factors)
	raw := sumPoints(factors)

	return Evaluation{
		Score:        normalize(raw, AIRawMax),
		RawPoints:    raw,
		RawPointsMax: AIRawMax,
		Factors:      factors,
		Flags: map[string]bool{
			"hasStructuredData":        hasStructuredData,
			"hasFaqSchema":             hasFaqSchema,
			"hasVerticalSchema":        hasVerticalSchema,
			"hasFaqContent":            hasFaqContent,
			"hasConversationalHeaders": hasConversational,
			"hasStructuredFormatting":  hasFormatting,
			"hasCitations":             hasCitations,
			"hasHighQualityCitations":  hasHighQualityCitations,
			"hasStatistics":            hasStatistics,
			"hasImageOptimization":     imgTotal > 0 && coverage >= 0.5,
			"hasContentFreshness":      isFresh,
		},
	}
}

func headingsContainAny(headings, triggers []string) bool {
	for _, h := range headings {
		if containsAnyFold(strings.ToLower(h), triggers) {
			return true
		}
	}
	return false
}

func anyHrefMatches(html string, domains []string) bool {
	for _, href := range pageHrefs(html) {
		if containsAnyFold(strings.ToLower(href), domains) {
			return true
		}
	}
	return false
}

func countTrustIndicators(lowerHTML string, groups []TrustIndicator) int {
	count := 0
	for _, g := range groups {
		if containsAnyFold(lowerHTML, g.Patterns) {
			count++
		}
	}
	return count
}

func scoreConversationalHeaders(hasConversational bool, h1Count int) ScoreFactor {
	f := ScoreFactor{Name: "conversational_headers"}
	switch {
	case hasConversational && h1Count >= 1:
		f.Points = 15
		f.Explanation = fmt.Sprintf("Question-style headers found across %d H1 headings", h1Count)
	case h1Count >= 1:
		f.Points = 5
		f.Explanation = fmt.Sprintf("%d H1 headings, none phrased conversationally", h1Count)
	default:
		f.Explanation = "No H1 headings found"
	}
	return f
}

func scoreStructure(h2Count int) ScoreFactor {
	f := ScoreFactor{
		Name:        "structure",
		Explanation: fmt.Sprintf("Page is divided into %d H2 sections", h2Count),
	}
	switch {
	case h2Count >= 6:
		f.Points = 10
	case h2Count >= 4:
		f.Points = 6
	default:
		f.Points = 2
	}
	return f
}

func scoreContentDepth(wordCount int) ScoreFactor {
	f := ScoreFactor{
		Name:        "content_depth",
		Explanation: fmt.Sprintf("Page has %d words", wordCount),
	}
	switch {
	case wordCount >= 1500:
		f.Points = 12
	case wordCount >= 800:
		f.Points = 8
	case wordCount >= 400:
		f.Points = 4
	}
	return f
}

func (a *AIReadiness) scoreSchemaPresence(hasVertical, hasFaq, hasAny bool) ScoreFactor {
	f := ScoreFactor{Name: "structured_data"}
	topTier := hasVertical && (!a.cfg.RequireFaqSchema || hasFaq)
	switch {
	case topTier:
		f.Points = 15
		f.Explanation = fmt.Sprintf("Schema markup matches the %s vertical", a.cfg.Name)
	case hasAny:
		f.Points = 8
		f.Explanation = "Structured data present but no vertical-specific type"
	default:
		f.Explanation = "No structured data found"
	}
	return f
}

func scoreFaqSchema(hasFaqSchema, hasFaqContent bool) ScoreFactor {
	f := ScoreFactor{Name: "faq_schema"}
	switch {
	case hasFaqSchema:
		f.Points = 18
		f.Explanation = "FAQPage schema markup found"
	case hasFaqContent:
		f.Points = 5
		f.Explanation = "FAQ-style content without FAQPage schema"
	default:
		f.Explanation = "No FAQ schema or FAQ-style content"
	}
	return f
}

func (a *AIReadiness) scoreVoiceReadiness(questionCount int) ScoreFactor {
	f := ScoreFactor{
		Name:        a.cfg.VoiceFactorName,
		Explanation: fmt.Sprintf("Found %d question patterns", questionCount),
	}
	switch {
	case questionCount >= 8:
		f.Points = 20
	case questionCount >= 5:
		f.Points = 15
	case questionCount >= 3:
		f.Points = 8
	default:
		f.Points = 2
	}
	return f
}

func scoreAuthoritySignals(hasHighQuality, hasCitations, hasStatistics bool) ScoreFactor {
	f := ScoreFactor{Name: "authority_signals"}
	switch {
	case hasHighQuality && hasStatistics:
		f.Points = 12
		f.Explanation = "High-trust citations backed by statistics"
	case hasCitations || hasStatistics:
		f.Points = 6
		f.Explanation = "Citations or statistics present, not both from trusted sources"
	default:
		f.Explanation = "No citations or statistics found"
	}
	return f
}

func scorePerformance(loadTimeMs int) ScoreFactor {
	f := ScoreFactor{
		Name:        "performance",
		Explanation: fmt.Sprintf("Page loaded in %dms", loadTimeMs),
	}
	switch {
	case loadTimeMs <= 2000:
		f.Points = 5
	case loadTimeMs <= 3500:
		f.Points = 3
	}
	return f
}

func (a *AIReadiness) scoreEEAT(eeatCount int) ScoreFactor {
	f := ScoreFactor{
		Name:        "eeat_signals",
		Explanation: fmt.Sprintf("Matched %d of %d trust indicator groups", eeatCount, len(a.cfg.TrustIndicators)),
	}
	for _, tier := range a.cfg.EEATTiers {
		if eeatCount >= tier.MinCount {
			f.Points = tier.Points
			break
		}
	}
	return f
}

func (a *AIReadiness) scoreMetaOptimization(title, desc string) ScoreFactor {
	titleLen := runeLen(title)
	descLen := runeLen(desc)
	f := ScoreFactor{
		Name:        "meta_optimization",
		Explanation: fmt.Sprintf("Title is %d characters, description %d characters", titleLen, descLen),
	}
	if titleLen >= 30 && titleLen <= 60 {
		f.Points += a.cfg.TitlePoints
	}
	if descLen >= 120 && descLen <= 160 {
		f.Points += a.cfg.DescPoints
	}
	return f
}

func scoreAltCoverage(coverage float64, imgTotal int) ScoreFactor {
	f := ScoreFactor{
		Name:        "image_optimization",
		Explanation: fmt.Sprintf("Alt text coverage is %.0f%% across %d images", coverage*100, imgTotal),
	}
	switch {
	case coverage >= 0.9:
		f.Points = 5
	case coverage >= 0.5:
		f.Points = 3
	}
	return f
}

func scoreInternalLinking(count int) ScoreFactor {
	f := ScoreFactor{
		Name:        "internal_linking",
		Explanation: fmt.Sprintf("Found %d internal links", count),
	}
	switch {
	case count >= 10:
		f.Points = 5
	case count >= 5:
		f.Points = 3
	}
	return f
}

func scoreFormatting(hasFormatting bool) ScoreFactor {
	f := ScoreFactor{Name: "structured_formatting"}
	if hasFormatting {
		f.Points = 5
		f.Explanation = "Lists or tables structure the content"
	} else {
		f.Explanation = "No lists or tables found"
	}
	return f
}

func scoreFreshness(isFresh bool, evaluatedAt time.Time) ScoreFactor {
	year := evaluatedAt.Year()
	f := ScoreFactor{Name: "content_freshness"}
	if isFresh {
		f.Points = 5
		f.Explanation = fmt.Sprintf("Content references %d or %d", year, year-1)
	} else {
		f.Explanation = fmt.Sprintf("No mention of %d or %d", year, year-1)
	}
	return f
}
