package scoring

// AIRawMax is the fixed normalization denominator for the AI-readiness
// rubric, shared by every vertical configuration.
const AIRawMax = 150

// TrustIndicator is one E-E-A-T signal group. The group counts as matched
// when any of its patterns appears in the page text; eeat scoring counts
// matched groups, not individual pattern hits.
type TrustIndicator struct {
	Name     string
	Patterns []string // lower-case substrings
}

// EEATTier awards Points when at least MinCount indicator groups matched.
// Tiers are declared highest count first; the first tier that fits wins.
type EEATTier struct {
	MinCount int
	Points   int
}

// RubricConfig parameterizes the AI-readiness rubric for one vertical. The
// factor table and weights are shared; verticals differ only in keyword
// lists, the schema-type allowlist, the eeat tier ladder, the meta
// sub-point weights, and the name of the question-density factor. A config
// is chosen when the component is constructed and never changes
// mid-evaluation.
type RubricConfig struct {
	Name string

	// VoiceFactorName is the identifier the question-density factor is
	// reported under.
	VoiceFactorName string

	// SchemaTypes are the vertical's JSON-LD type names, matched as
	// lower-case substrings of raw block text.
	SchemaTypes []string

	// RequireFaqSchema demands FAQ schema alongside a vertical type for
	// the structured_data top tier.
	RequireFaqSchema bool

	ConversationalTriggers []string
	CitationKeywords       []string
	TrustedDomains         []string
	TrustIndicators        []TrustIndicator
	EEATTiers              []EEATTier

	// Meta optimization sub-points for an optimal title and an optimal
	// description length.
	TitlePoints int
	DescPoints  int
}

var aiFactorMax = map[string]int{
	"conversational_headers": 15,
	"structure":              10,
	"content_depth":          12,
	"structured_data":        15,
	"faq_schema":             18,
	"authority_signals":      12,
	"performance":            5,
	"eeat_signals":           13,
	"meta_optimization":      10,
	"image_optimization":     5,
	"internal_linking":       5,
	"structured_formatting":  5,
	"content_freshness":      5,
}

// FactorOrder is the canonical display order for this configuration. Only
// the question-density slot varies between verticals.
func (c RubricConfig) FactorOrder() []string {
	return []string{
		"conversational_headers",
		"structure",
		"content_depth",
		"structured_data",
		"faq_schema",
		c.VoiceFactorName,
		"authority_signals",
		"performance",
		"eeat_signals",
		"meta_optimization",
		"image_optimization",
		"internal_linking",
		"structured_formatting",
		"content_freshness",
	}
}

// FactorMax reports the maximum points for a factor name under this
// configuration, or 0 for an unknown name.
func (c RubricConfig) FactorMax(name string) int {
	if name == c.VoiceFactorName {
		return 20
	}
	return aiFactorMax[name]
}

// MedicalVertical is the rubric configuration tuned for healthcare pages:
// medical schema types, clinical citation sources, and a three-step eeat
// ladder that rewards medical review workflows.
func MedicalVertical() RubricConfig {
	return RubricConfig{
		Name:            "medical",
		VoiceFactorName: "voice_search",
		SchemaTypes: []string{
			"medicalclinic",
			"physician",
			"medicalorganization",
			"medicalwebpage",
			"localbusiness",
		},
		ConversationalTriggers: []string{
			"what", "how", "why", "when", "guide",
			"symptoms", "causes", "treatment", "should i",
		},
		CitationKeywords: []string{
			"according to", "study", "research", "clinical trial",
			"journal", "published in",
		},
		TrustedDomains: []string{
			"nih.gov", "cdc.gov", "who.int", "pubmed",
			"mayoclinic", ".gov", ".edu",
		},
		TrustIndicators: []TrustIndicator{
			{Name: "byline", Patterns: []string{"written by", "medically reviewed", "author"}},
			{Name: "credentials", Patterns: []string{"m.d.", "board-certified", "board certified", "ph.d.", "dr. "}},
			{Name: "editorial", Patterns: []string{"reviewed by", "about us", "our team", "editorial policy"}},
		},
		EEATTiers: []EEATTier{
			{MinCount: 3, Points: 13},
			{MinCount: 2, Points: 9},
			{MinCount: 1, Points: 5},
		},
		TitlePoints: 5,
		DescPoints:  5,
	}
}

// BusinessVertical is the rubric configuration for commercial service
// pages. It runs the combined-schema rule: the structured_data top tier
// needs FAQ schema alongside an organization type.
func BusinessVertical() RubricConfig {
	return RubricConfig{
		Name:             "business",
		VoiceFactorName:  "ai_search_ready",
		RequireFaqSchema: true,
		SchemaTypes: []string{
			"organization",
			"localbusiness",
			"professionalservice",
			"service",
			"product",
		},
		ConversationalTriggers: []string{
			"what", "how", "why", "guide", "tips", "best",
			"strategies", "checklist",
		},
		CitationKeywords: []string{
			"according to", "study", "research", "report",
			"survey", "industry data",
		},
		TrustedDomains: []string{
			"harvard", "mckinsey", "forbes", "gartner",
			"statista", ".gov", ".edu",
		},
		TrustIndicators: []TrustIndicator{
			{Name: "byline", Patterns: []string{"written by", "author"}},
			{Name: "credentials", Patterns: []string{"years of experience", "certified", "award-winning", "expert"}},
			{Name: "trust", Patterns: []string{"about us", "our team", "testimonials", "case studies"}},
		},
		EEATTiers: []EEATTier{
			{MinCount: 2, Points: 13},
			{MinCount: 1, Points: 7},
		},
		TitlePoints: 4,
		DescPoints:  4,
	}
}

// VerticalConfig resolves a vertical name to its rubric configuration,
// defaulting to the business vertical for unknown names.
func VerticalConfig(name string) RubricConfig {
	if name == "medical" {
		return MedicalVertical()
	}
	return BusinessVertical()
}
