package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"
)

// FetchMeta carries response metadata the extractor folds into the signals.
type FetchMeta struct {
	StatusCode int
	LoadTimeMs int
	PageSizeKB int
}

// Extractor derives PageSignals from raw HTML. Extraction is lossy: it
// pulls what it can out of tag soup and leaves the rest empty, never
// returning an error into scoring.
type Extractor struct {
	detector lingua.LanguageDetector
}

func NewExtractor() *Extractor {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.Spanish,
			lingua.French,
			lingua.German,
			lingua.Portuguese,
			lingua.Italian,
			lingua.Dutch,
		).
		Build()
	return &Extractor{detector: detector}
}

// Extract parses the document once and returns the full signal record.
func (e *Extractor) Extract(pageURL, html string, meta FetchMeta) PageSignals {
	sig := PageSignals{
		URL:                  pageURL,
		H1Headings:           []string{},
		H2Headings:           []string{},
		StructuredDataBlocks: []string{},
		StatusCode:           meta.StatusCode,
		LoadTimeMs:           meta.LoadTimeMs,
		PageSizeKB:           meta.PageSizeKB,
		RawHTML:              html,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return sig
	}

	sig.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		sig.MetaDescription = strings.TrimSpace(desc)
	}
	if canonical, exists := doc.Find("link[rel='canonical']").Attr("href"); exists {
		sig.CanonicalURL = strings.TrimSpace(canonical)
	}
	if lang, exists := doc.Find("html").Attr("lang"); exists {
		sig.LanguageTag = strings.TrimSpace(lang)
	}

	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		sig.H1Headings = append(sig.H1Headings, strings.TrimSpace(s.Text()))
	})
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		sig.H2Headings = append(sig.H2Headings, strings.TrimSpace(s.Text()))
	})
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		sig.StructuredDataBlocks = append(sig.StructuredDataBlocks, s.Text())
	})

	words := strings.Fields(e.articleText(pageURL, html, doc))
	sig.WordCount = len(words)
	sig.DetectedLanguage = e.detectLanguage(words)

	return sig
}

// articleText prefers the readability-distilled article body for word
// counting so navigation and footer chrome do not inflate the count. Falls
// back to the whole body when distillation fails or comes back empty.
func (e *Extractor) articleText(pageURL, html string, doc *goquery.Document) string {
	if parsed, err := url.Parse(pageURL); err == nil {
		article, err := readability.NewParser().Parse(strings.NewReader(html), parsed)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return article.TextContent
		}
	}
	return doc.Find("body").Text()
}

// detectLanguage samples the article text and reports an ISO 639-1 code.
// Short texts are skipped: the detector is unreliable under a couple of
// sentences.
func (e *Extractor) detectLanguage(words []string) string {
	if len(words) < 20 {
		return ""
	}
	sample := words
	if len(sample) > 300 {
		sample = sample[:300]
	}
	lang, ok := e.detector.DetectLanguageOf(strings.Join(sample, " "))
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
