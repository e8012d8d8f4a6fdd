package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/searchpulse/backend/metrics"
	"github.com/searchpulse/backend/stats"
)

const testPage = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Springfield Physical Therapy: Recovery Plans That Work</title>
<meta name="description" content="Our licensed physical therapists build recovery plans for back pain, sports injuries and post-surgery rehab. Book a same-week evaluation today.">
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="canonical" href="https://springfieldpt.example/">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"MedicalClinic","name":"Springfield Physical Therapy"}</script>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"FAQPage"}</script>
</head>
<body>
<h1>What should I expect from physical therapy?</h1>
<h2>How long does recovery take?</h2>
<p>Most patients see progress within six weeks. Recovery time depends on the injury,
your activity level and how consistently you complete the home program we design.</p>
<h2>Why choose our clinic?</h2>
<p>Written by Dr. Ellis, board-certified in sports medicine. According to a study
published in a peer-reviewed journal, guided rehabilitation shortens recovery.</p>
<h2>When should I call a therapist?</h2>
<p>Call when pain lasts more than two weeks. 85% of our patients report less pain
after the first month of treatment.</p>
<h2>Where do sessions happen?</h2>
<ul><li>In-clinic sessions</li><li>Telehealth check-ins</li></ul>
<img src="/gym.jpg" alt="Our rehabilitation gym">
<a href="/services">Services</a>
<a href="/team">Our team</a>
<a href="/faq">FAQ</a>
<a href="https://nih.gov/studies">NIH research</a>
</body>
</html>`

func newTestAnalyzer(t *testing.T, opts Options) *Analyzer {
	t.Helper()

	storage, err := stats.NewStorage(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create stats storage: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })

	opts.Stats = storage
	opts.Metrics = metrics.NewWithRegistry("searchpulse", prometheus.NewRegistry())
	opts.Logger = zap.NewNop()

	a := New(opts)
	t.Cleanup(a.Shutdown)
	return a
}

func testServer(t *testing.T, html string) *httptest.Server {
	t.Helper()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestAnalyzeScoresBothComponents(t *testing.T) {
	server := testServer(t, testPage)
	a := newTestAnalyzer(t, Options{})

	analysis, err := a.Analyze(context.Background(), server.URL, "medical")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.ID == "" {
		t.Error("expected a generated analysis ID")
	}
	if analysis.URL != server.URL || analysis.Vertical != "medical" {
		t.Errorf("envelope mismatch: url=%q vertical=%q", analysis.URL, analysis.Vertical)
	}
	if analysis.CacheHit {
		t.Error("first analysis should not be a cache hit")
	}

	if len(analysis.SEO.Factors) != 12 {
		t.Errorf("expected 12 seo factors, got %d", len(analysis.SEO.Factors))
	}
	if len(analysis.GEO.Factors) != 14 {
		t.Errorf("expected 14 geo factors, got %d", len(analysis.GEO.Factors))
	}
	if analysis.SEO.RawPointsMax != 130 || analysis.GEO.RawPointsMax != 150 {
		t.Errorf("unexpected raw maxima: seo=%d geo=%d",
			analysis.SEO.RawPointsMax, analysis.GEO.RawPointsMax)
	}

	voiceFound := false
	for _, f := range analysis.GEO.Factors {
		if f.Name == "voice_search" {
			voiceFound = true
		}
	}
	if !voiceFound {
		t.Error("medical vertical should carry the voice_search factor")
	}

	if analysis.Signals.Title == "" || analysis.Signals.WordCount == 0 {
		t.Errorf("signals not extracted: %+v", analysis.Signals)
	}
	if analysis.Signals.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want 200", analysis.Signals.StatusCode)
	}
	if analysis.Signals.RawHTML != "" {
		t.Error("raw HTML should be dropped from the envelope")
	}
}

func TestAnalyzeCacheHit(t *testing.T) {
	server := testServer(t, testPage)
	a := newTestAnalyzer(t, Options{})
	ctx := context.Background()

	first, err := a.Analyze(ctx, server.URL, "business")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	second, err := a.Analyze(ctx, server.URL, "business")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !second.CacheHit {
		t.Error("second analysis should be served from cache")
	}
	if second.ID != first.ID {
		t.Errorf("cached analysis ID = %s, want %s", second.ID, first.ID)
	}

	cacheStats := a.GetCacheStats()
	if cacheStats.Entries != 1 {
		t.Errorf("cache entries = %d, want 1", cacheStats.Entries)
	}
	if cacheStats.Hits != 1 || cacheStats.Misses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", cacheStats.Hits, cacheStats.Misses)
	}
}

func TestAnalyzeVerticalsCachedSeparately(t *testing.T) {
	server := testServer(t, testPage)
	a := newTestAnalyzer(t, Options{})
	ctx := context.Background()

	if _, err := a.Analyze(ctx, server.URL, "medical"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	business, err := a.Analyze(ctx, server.URL, "business")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if business.CacheHit {
		t.Error("different vertical should not share a cache entry")
	}

	found := false
	for _, f := range business.GEO.Factors {
		if f.Name == "ai_search_ready" {
			found = true
		}
	}
	if !found {
		t.Error("business vertical should carry the ai_search_ready factor")
	}

	if !a.IsCached(server.URL, "medical") || !a.IsCached(server.URL, "business") {
		t.Error("both verticals should be cached")
	}
}

func TestAnalyzeTTLExpiry(t *testing.T) {
	server := testServer(t, testPage)
	a := newTestAnalyzer(t, Options{})
	ctx := context.Background()

	first, err := a.Analyze(ctx, server.URL, "business")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	a.SetCacheTTL(0)

	if a.IsCached(server.URL, "business") {
		t.Error("entry should be stale with a zero TTL")
	}

	second, err := a.Analyze(ctx, server.URL, "business")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if second.CacheHit {
		t.Error("stale entry should not be served")
	}
	if second.ID == first.ID {
		t.Error("expired entry should be re-analyzed with a new ID")
	}
}

func TestAnalyzeFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	a := newTestAnalyzer(t, Options{})

	if _, err := a.Analyze(context.Background(), url, "business"); err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
}

func TestAnalyzeNonOKStatusStillScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<html><head><title>Page not found</title></head><body><p>Gone.</p></body></html>")
	}))
	t.Cleanup(server.Close)

	a := newTestAnalyzer(t, Options{})

	analysis, err := a.Analyze(context.Background(), server.URL, "business")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.Signals.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", analysis.Signals.StatusCode)
	}
	if len(analysis.SEO.Factors) != 12 {
		t.Errorf("expected full factor set for a 404 page, got %d", len(analysis.SEO.Factors))
	}
}

func TestCleanupEnforcesSizeLimit(t *testing.T) {
	server := testServer(t, testPage)
	a := newTestAnalyzer(t, Options{})
	ctx := context.Background()

	urls := []string{server.URL + "/a", server.URL + "/b", server.URL + "/c"}
	for _, u := range urls {
		if _, err := a.Analyze(ctx, u, "business"); err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
	}

	// Backdate the first entry so eviction order is deterministic.
	a.cacheMutex.Lock()
	oldest := generateCacheKey(urls[0], "business")
	entry := a.cache[oldest]
	entry.timestamp = entry.timestamp.Add(-time.Minute)
	a.cache[oldest] = entry
	a.cacheMutex.Unlock()

	a.SetMaxCacheSize(2)

	if a.GetCacheStats().Entries != 2 {
		t.Errorf("cache entries = %d, want 2", a.GetCacheStats().Entries)
	}
	if a.IsCached(urls[0], "business") {
		t.Error("oldest entry should have been evicted")
	}
	if !a.IsCached(urls[2], "business") {
		t.Error("newest entry should survive eviction")
	}
}

func TestConcurrentAnalyze(t *testing.T) {
	server := testServer(t, testPage)
	a := newTestAnalyzer(t, Options{})
	ctx := context.Background()

	concurrency := 20
	var wg sync.WaitGroup
	errChan := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if _, err := a.Analyze(ctx, server.URL, "business"); err != nil {
					errChan <- fmt.Errorf("analyze error: %v", err)
				}
			} else {
				a.IsCached(server.URL, "business")
			}
		}(i)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		t.Error(err)
	}

	if entries := a.GetCacheStats().Entries; entries != 1 {
		t.Errorf("cache entries = %d, want 1", entries)
	}
}

func TestGenerateCacheKey(t *testing.T) {
	u := "https://example.com/page"

	if generateCacheKey(u, "medical") == generateCacheKey(u, "business") {
		t.Error("verticals should produce distinct cache keys")
	}
	if generateCacheKey(u, "medical") != generateCacheKey(u, "medical") {
		t.Error("cache keys should be deterministic")
	}
}
