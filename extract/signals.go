package extract

// PageSignals carries everything the scoring components read for one page.
// RawHTML is the source of truth: every other field is derived from it or
// from response metadata, so two extractions of the same document produce
// identical signals. Optional fields are empty strings or empty slices when
// the page does not provide them, never an error.
type PageSignals struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	CanonicalURL    string `json:"canonicalUrl"`
	LanguageTag     string `json:"languageTag"`

	// Heading text in document order, duplicates kept.
	H1Headings []string `json:"h1Headings"`
	H2Headings []string `json:"h2Headings"`

	// Raw text of each JSON-LD script block. The text is matched as-is by
	// the scoring components and is never parsed as JSON, so malformed
	// blocks still count.
	StructuredDataBlocks []string `json:"structuredDataBlocks"`

	WordCount  int `json:"wordCount"`
	LoadTimeMs int `json:"loadTimeMs"`
	StatusCode int `json:"statusCode"`
	PageSizeKB int `json:"pageSizeKB"`

	// DetectedLanguage is the language inferred from the page text.
	// Informational only: scoring reads the declared LanguageTag.
	DetectedLanguage string `json:"detectedLanguage,omitempty"`

	RawHTML string `json:"-"`
}
