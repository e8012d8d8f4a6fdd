package scoring

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// The rubric factors match raw markup with patterns rather than a parsed DOM.
// Lossy on hostile input, but deterministic and tolerant of tag soup.

var (
	anchorHrefRe = regexp.MustCompile(`(?i)<a\s[^>]*href\s*=\s*["']([^"']*)["']`)
	imgTagRe     = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	imgAltRe     = regexp.MustCompile(`(?i)\balt\s*=\s*["']([^"']+)["']`)
	viewportRe   = regexp.MustCompile(`(?i)<meta\s[^>]*name\s*=\s*["']viewport["']`)
	listTableRe  = regexp.MustCompile(`(?i)<(?:ol|ul|table)\b`)
	faqHeadingRe = regexp.MustCompile(`(?i)<h[1-6][^>]*>[^<]*(?:\bfaqs?\b|frequently asked questions)`)

	// A question is a trigger word with a question mark within the next 120
	// characters. Each trigger occurrence counts on its own, so overlapping
	// windows are not merged.
	questionTriggerRe = regexp.MustCompile(`(?i)\b(?:what|how|why|when|where|who|which|can|should|does|is|are)\b`)

	statisticsRe = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:%|percent\b|patients\b|customers\b|clients\b|users\b|cases\b|studies\b|years\b)`)
)

func pageHrefs(html string) []string {
	matches := anchorHrefRe.FindAllStringSubmatch(html, -1)
	hrefs := make([]string, 0, len(matches))
	for _, m := range matches {
		hrefs = append(hrefs, m[1])
	}
	return hrefs
}

// countInternalLinks counts anchors whose href does not start with an
// absolute http(s) scheme. Relative, fragment and root-relative links all
// count as internal.
func countInternalLinks(html string) int {
	count := 0
	for _, href := range pageHrefs(html) {
		lower := strings.ToLower(strings.TrimSpace(href))
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			continue
		}
		count++
	}
	return count
}

// imageAltStats reports the total number of img tags and how many carry a
// non-empty alt attribute.
func imageAltStats(html string) (total, withAlt int) {
	for _, tag := range imgTagRe.FindAllString(html, -1) {
		total++
		if m := imgAltRe.FindStringSubmatch(tag); m != nil && strings.TrimSpace(m[1]) != "" {
			withAlt++
		}
	}
	return total, withAlt
}

// altCoverage is the share of img tags carrying a non-empty alt attribute.
// A page with no images counts as fully covered.
func altCoverage(total, withAlt int) float64 {
	if total == 0 {
		return 1
	}
	return float64(withAlt) / float64(total)
}

func hasViewportMeta(html string) bool {
	return viewportRe.MatchString(html)
}

func hasStructuredFormatting(html string) bool {
	return listTableRe.MatchString(html)
}

func hasFaqHeading(html string) bool {
	return faqHeadingRe.MatchString(html)
}

// countQuestionPatterns counts trigger words followed by a question mark
// within 120 characters. The scan restarts at every trigger occurrence, so a
// sentence holding two trigger words before its question mark counts twice.
func countQuestionPatterns(html string) int {
	count := 0
	for _, loc := range questionTriggerRe.FindAllStringIndex(html, -1) {
		rest := html[loc[1]:]
		if len(rest) > 121 {
			rest = rest[:121]
		}
		if strings.IndexByte(rest, '?') >= 0 {
			count++
		}
	}
	return count
}

func hasStatisticsPattern(html string) bool {
	return statisticsRe.MatchString(html)
}

// hasRecentYear reports whether the current or prior calendar year relative
// to evaluatedAt appears in the document as a standalone number. The one
// factor input that depends on the evaluation instant.
func hasRecentYear(html string, evaluatedAt time.Time) bool {
	year := evaluatedAt.Year()
	re := regexp.MustCompile(fmt.Sprintf(`\b(?:%d|%d)\b`, year, year-1))
	return re.MatchString(html)
}

// containsAnyFold reports whether lowerText contains any of the keywords.
// lowerText must already be lower-cased; keywords are lower-case constants.
func containsAnyFold(lowerText string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowerText, kw) {
			return true
		}
	}
	return false
}
