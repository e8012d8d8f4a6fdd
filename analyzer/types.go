package analyzer

import (
	"time"

	"github.com/searchpulse/backend/extract"
	"github.com/searchpulse/backend/recommend"
	"github.com/searchpulse/backend/scoring"
)

// Analysis is the result envelope for one analyzed page: the extracted
// signals, both evaluations and any recommendations. Signals omit the raw
// HTML, which is dropped once scoring has run.
type Analysis struct {
	ID              string              `json:"id"`
	URL             string              `json:"url"`
	Vertical        string              `json:"vertical"`
	FetchedAt       time.Time           `json:"fetchedAt"`
	Signals         extract.PageSignals `json:"signals"`
	SEO             scoring.Evaluation  `json:"seo"`
	GEO             scoring.Evaluation  `json:"geo"`
	Recommendations []recommend.Item    `json:"recommendations,omitempty"`
	CacheHit        bool                `json:"cacheHit"`
}

// CacheStats reports the state of the response cache.
type CacheStats struct {
	Entries int           `json:"entries"`
	Hits    int           `json:"hits"`
	Misses  int           `json:"misses"`
	TTL     time.Duration `json:"ttl"`
}
