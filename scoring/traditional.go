package scoring

import (
	"fmt"
	"strings"

	"github.com/searchpulse/backend/extract"
)

// TraditionalRawMax is the fixed normalization denominator for the
// traditional rubric. The factor maxima sum to 118, so a page that tops
// every tier normalizes to 91, not 100.
const TraditionalRawMax = 130

// TraditionalFactorOrder is the canonical display order of the traditional
// rubric. Persisted breakdowns and the report UI key off these names, so
// they never change without a history migration.
var TraditionalFactorOrder = []string{
	"title_tag",
	"meta_description",
	"header_tags",
	"content_quality",
	"structured_data",
	"canonical_tag",
	"internal_links",
	"image_optimization",
	"mobile_optimization",
	"https_security",
	"page_speed",
	"language_locale",
}

var traditionalFactorMax = map[string]int{
	"title_tag":           15,
	"meta_description":    15,
	"header_tags":         15,
	"content_quality":     12,
	"structured_data":     10,
	"canonical_tag":       7,
	"internal_links":      10,
	"image_optimization":  10,
	"mobile_optimization": 7,
	"https_security":      5,
	"page_speed":          7,
	"language_locale":     5,
}

// TraditionalFactorMax reports the maximum points the traditional rubric
// assigns to a factor name, or 0 for an unknown name.
func TraditionalFactorMax(name string) int {
	return traditionalFactorMax[name]
}

// Traditional scores classic search-engine ranking signals. Evaluate is a
// pure function of its input: no I/O, no clock, no mutation.
type Traditional struct{}

func NewTraditional() *Traditional {
	return &Traditional{}
}

// Evaluate applies the traditional rubric to one page's signals. It never
// fails: absent optional signals score their zero tier.
func (t *Traditional) Evaluate(sig extract.PageSignals) Evaluation {
	factors := []ScoreFactor{
		scoreTitleTag(sig.Title),
		scoreMetaDescription(sig.MetaDescription),
		scoreHeaderTags(len(sig.H1Headings), len(sig.H2Headings)),
		scoreContentQuality(sig.WordCount),
		scoreStructuredDataCount(len(sig.StructuredDataBlocks)),
		scoreCanonicalTag(sig.CanonicalURL),
		scoreInternalLinks(countInternalLinks(sig.RawHTML)),
		scoreImageOptimization(imageAltStats(sig.RawHTML)),
		scoreMobileOptimization(hasViewportMeta(sig.RawHTML)),
		scoreHTTPSSecurity(sig.URL),
		scorePageSpeed(sig.LoadTimeMs),
		scoreLanguageLocale(sig.LanguageTag),
	}
	factors = OrderFactors(TraditionalFactorOrder, factors)
	raw := sumPoints(factors)

	return Evaluation{
		Score:        normalize(raw, TraditionalRawMax),
		RawPoints:    raw,
		RawPointsMax: TraditionalRawMax,
		Factors:      factors,
		Flags: map[string]bool{
			"hasTitle":           sig.Title != "",
			"hasMetaDescription": sig.MetaDescription != "",
			"hasCanonical":       sig.CanonicalURL != "",
			"hasStructuredData":  len(sig.StructuredDataBlocks) > 0,
			"hasViewport":        hasViewportMeta(sig.RawHTML),
			"isHTTPS":            isHTTPS(sig.URL),
			"hasLanguageTag":     sig.LanguageTag != "",
		},
	}
}

func scoreTitleTag(title string) ScoreFactor {
	f := ScoreFactor{Name: "title_tag"}
	if title == "" {
		f.Explanation = "Title tag is missing"
		return f
	}
	length := runeLen(title)
	switch {
	case length >= 50 && length <= 60:
		f.Points = 15
		f.Explanation = fmt.Sprintf("Title is %d characters (optimal 50-60)", length)
	case length >= 30 && length < 50:
		f.Points = 10
		f.Explanation = fmt.Sprintf("Title is %d characters (aim for 50-60)", length)
	default:
		f.Points = 5
		f.Explanation = fmt.Sprintf("Title is %d characters, outside the 30-60 range", length)
	}
	return f
}

func scoreMetaDescription(desc string) ScoreFactor {
	f := ScoreFactor{Name: "meta_description"}
	if desc == "" {
		f.Explanation = "Meta description is missing"
		return f
	}
	length := runeLen(desc)
	switch {
	case length >= 150 && length <= 160:
		f.Points = 15
		f.Explanation = fmt.Sprintf("Meta description is %d characters (optimal 150-160)", length)
	case length >= 120 && length < 150:
		f.Points = 12
		f.Explanation = fmt.Sprintf("Meta description is %d characters (aim for 150-160)", length)
	default:
		f.Points = 5
		f.Explanation = fmt.Sprintf("Meta description is %d characters, outside the 120-160 range", length)
	}
	return f
}

func scoreHeaderTags(h1Count, h2Count int) ScoreFactor {
	f := ScoreFactor{
		Name:        "header_tags",
		Explanation: fmt.Sprintf("Found %d H1 and %d H2 headings", h1Count, h2Count),
	}
	switch {
	case h1Count == 1 && h2Count >= 4:
		f.Points = 15
	case h1Count == 1 && h2Count >= 2:
		f.Points = 10
	case h1Count >= 1:
		f.Points = 5
	}
	return f
}

func scoreContentQuality(wordCount int) ScoreFactor {
	f := ScoreFactor{
		Name:        "content_quality",
		Explanation: fmt.Sprintf("Page has %d words", wordCount),
	}
	switch {
	case wordCount >= 1500:
		f.Points = 12
	case wordCount >= 800:
		f.Points = 10
	case wordCount >= 300:
		f.Points = 5
	}
	return f
}

func scoreStructuredDataCount(blocks int) ScoreFactor {
	f := ScoreFactor{
		Name:        "structured_data",
		Explanation: fmt.Sprintf("Found %d JSON-LD blocks", blocks),
	}
	switch {
	case blocks >= 2:
		f.Points = 10
	case blocks == 1:
		f.Points = 7
	}
	return f
}

func scoreCanonicalTag(canonical string) ScoreFactor {
	f := ScoreFactor{Name: "canonical_tag"}
	if canonical != "" {
		f.Points = 7
		f.Explanation = fmt.Sprintf("Canonical URL set to %s", canonical)
	} else {
		f.Explanation = "Canonical link tag is missing"
	}
	return f
}

func scoreInternalLinks(count int) ScoreFactor {
	f := ScoreFactor{
		Name:        "internal_links",
		Explanation: fmt.Sprintf("Found %d internal links", count),
	}
	switch {
	case count >= 5:
		f.Points = 10
	case count >= 3:
		f.Points = 6
	default:
		f.Points = 2
	}
	return f
}

func scoreImageOptimization(total, withAlt int) ScoreFactor {
	coverage := altCoverage(total, withAlt)
	f := ScoreFactor{
		Name:        "image_optimization",
		Explanation: fmt.Sprintf("%d of %d images have alt text", withAlt, total),
	}
	if total == 0 {
		f.Explanation = "No images on the page"
	}
	switch {
	case coverage >= 0.9:
		f.Points = 10
	case coverage >= 0.5:
		f.Points = 6
	default:
		f.Points = 2
	}
	return f
}

func scoreMobileOptimization(hasViewport bool) ScoreFactor {
	f := ScoreFactor{Name: "mobile_optimization"}
	if hasViewport {
		f.Points = 7
		f.Explanation = "Viewport meta tag present"
	} else {
		f.Explanation = "Viewport meta tag is missing"
	}
	return f
}

func isHTTPS(url string) bool {
	return strings.HasPrefix(strings.ToLower(url), "https://")
}

func scoreHTTPSSecurity(url string) ScoreFactor {
	f := ScoreFactor{Name: "https_security"}
	if isHTTPS(url) {
		f.Points = 5
		f.Explanation = "Page is served over HTTPS"
	} else {
		f.Explanation = "Page is not served over HTTPS"
	}
	return f
}

func scorePageSpeed(loadTimeMs int) ScoreFactor {
	f := ScoreFactor{
		Name:        "page_speed",
		Explanation: fmt.Sprintf("Page loaded in %dms", loadTimeMs),
	}
	switch {
	case loadTimeMs <= 1500:
		f.Points = 7
	case loadTimeMs <= 3000:
		f.Points = 5
	default:
		f.Points = 2
	}
	return f
}

func scoreLanguageLocale(tag string) ScoreFactor {
	f := ScoreFactor{Name: "language_locale"}
	if tag != "" {
		f.Points = 5
		f.Explanation = fmt.Sprintf("Language declared as %q", tag)
	} else {
		f.Explanation = "No lang attribute on the html element"
	}
	return f
}
