package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePage = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Springfield Family Clinic - Primary Care You Can Trust</title>
<meta name="description" content="Board-certified family medicine in Springfield. Same-day appointments, preventive care, and chronic condition management for all ages.">
<link rel="canonical" href="https://clinic.example/services">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"MedicalClinic","name":"Springfield Family Clinic"}</script>
<script type="application/ld+json">{"@type":"FAQPage"}</script>
</head>
<body>
<h1>Primary Care in Springfield</h1>
<h2>What we treat</h2>
<h2>How appointments work</h2>
<p>Our physicians provide comprehensive primary care for patients of all
ages, from newborn checkups through senior wellness visits. We focus on
prevention, early detection, and the long-term management of chronic
conditions such as diabetes and hypertension.</p>
</body>
</html>`

func TestExtractFullDocument(t *testing.T) {
	e := NewExtractor()
	sig := e.Extract("https://clinic.example/services", fixturePage, FetchMeta{
		StatusCode: 200,
		LoadTimeMs: 850,
		PageSizeKB: 42,
	})

	assert.Equal(t, "Springfield Family Clinic - Primary Care You Can Trust", sig.Title)
	assert.Contains(t, sig.MetaDescription, "Board-certified family medicine")
	assert.Equal(t, "https://clinic.example/services", sig.CanonicalURL)
	assert.Equal(t, "en", sig.LanguageTag)

	require.Len(t, sig.H1Headings, 1)
	assert.Equal(t, "Primary Care in Springfield", sig.H1Headings[0])
	assert.Equal(t, []string{"What we treat", "How appointments work"}, sig.H2Headings)

	require.Len(t, sig.StructuredDataBlocks, 2)
	assert.Contains(t, sig.StructuredDataBlocks[0], "MedicalClinic")
	assert.Contains(t, sig.StructuredDataBlocks[1], "FAQPage")

	assert.Greater(t, sig.WordCount, 20)
	assert.Equal(t, 200, sig.StatusCode)
	assert.Equal(t, 850, sig.LoadTimeMs)
	assert.Equal(t, 42, sig.PageSizeKB)
	assert.Equal(t, fixturePage, sig.RawHTML)
	assert.Equal(t, "en", sig.DetectedLanguage)
}

func TestExtractMissingOptionals(t *testing.T) {
	e := NewExtractor()
	sig := e.Extract("https://bare.example", "<html><body><p>hi</p></body></html>", FetchMeta{StatusCode: 200})

	assert.Empty(t, sig.Title)
	assert.Empty(t, sig.MetaDescription)
	assert.Empty(t, sig.CanonicalURL)
	assert.Empty(t, sig.LanguageTag)
	assert.Empty(t, sig.H1Headings)
	assert.Empty(t, sig.H2Headings)
	assert.Empty(t, sig.StructuredDataBlocks)
	assert.Empty(t, sig.DetectedLanguage, "too little text to detect")
	assert.Equal(t, 1, sig.WordCount)
}

func TestExtractTagSoup(t *testing.T) {
	e := NewExtractor()
	soup := `<title>Still readable</title><h1>Heading<h2>Sub<p>text without closing tags`
	sig := e.Extract("https://soup.example", soup, FetchMeta{})

	assert.Equal(t, soup, sig.RawHTML)
	assert.NotEmpty(t, sig.Title)
	assert.NotEmpty(t, sig.H1Headings)
}

func TestExtractEmptyDocument(t *testing.T) {
	e := NewExtractor()
	sig := e.Extract("https://empty.example", "", FetchMeta{StatusCode: 204})

	assert.Equal(t, 0, sig.WordCount)
	assert.Equal(t, 204, sig.StatusCode)
	assert.NotNil(t, sig.H1Headings)
	assert.NotNil(t, sig.StructuredDataBlocks)
}

func TestDetectLanguageSkipsShortText(t *testing.T) {
	e := NewExtractor()
	assert.Empty(t, e.detectLanguage(strings.Fields("only a few words here")))

	english := strings.Fields(strings.Repeat("the quick brown fox jumps over the lazy dog near the riverbank ", 5))
	assert.Equal(t, "en", e.detectLanguage(english))
}
