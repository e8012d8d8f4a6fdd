package analyzer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/searchpulse/backend/extract"
	"github.com/searchpulse/backend/metrics"
	"github.com/searchpulse/backend/recommend"
	"github.com/searchpulse/backend/scoring"
	"github.com/searchpulse/backend/stats"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

type cacheEntry struct {
	analysis  Analysis
	timestamp time.Time
}

// Options configures an Analyzer. Durations and sizes fall back to the
// defaults noted per field; Stats and Metrics must be provided.
type Options struct {
	FetchTimeout time.Duration // 15s
	CacheTTL     time.Duration // 30m
	MaxCacheSize int           // 1000
	UserAgent    string

	// Generator may be nil, which disables recommendations.
	Generator       *recommend.Generator
	GenerateTimeout time.Duration // 20s

	Stats   *stats.Storage
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Analyzer fetches pages, extracts their signals and runs both scoring
// components. Fresh results are cached per URL and vertical for the
// configured TTL.
type Analyzer struct {
	client      *http.Client
	extractor   *extract.Extractor
	traditional *scoring.Traditional
	userAgent   string

	generator  *recommend.Generator
	genTimeout time.Duration

	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once

	stats   *stats.Storage
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New creates an Analyzer and starts its cache cleanup goroutine.
func New(opts Options) *Analyzer {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.MaxCacheSize <= 0 {
		opts.MaxCacheSize = 1000
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "SearchPulse/1.0"
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  false,
	}

	a := &Analyzer{
		client: &http.Client{
			Timeout:   opts.FetchTimeout,
			Transport: transport,
		},
		extractor:       extract.NewExtractor(),
		traditional:     scoring.NewTraditional(),
		userAgent:       opts.UserAgent,
		generator:       opts.Generator,
		genTimeout:      opts.GenerateTimeout,
		cache:           make(map[string]cacheEntry),
		cacheTTL:        opts.CacheTTL,
		maxCacheSize:    opts.MaxCacheSize,
		cleanupInterval: 5 * time.Minute,
		lastCleanup:     time.Now(),
		done:            make(chan struct{}),
		stats:           opts.Stats,
		metrics:         opts.Metrics,
		log:             opts.Logger,
	}

	go a.periodicCleanup()

	return a
}

// Shutdown stops the cleanup goroutine.
func (a *Analyzer) Shutdown() {
	a.closeOnce.Do(func() { close(a.done) })
}

// periodicCleanup removes expired cache entries periodically
func (a *Analyzer) periodicCleanup() {
	ticker := time.NewTicker(a.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.cleanup()
		case <-a.done:
			return
		}
	}
}

// cleanup removes expired entries and enforces the cache size limit
func (a *Analyzer) cleanup() {
	now := time.Now()

	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()

	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	// If still over the size limit, remove oldest entries
	if len(a.cache) > a.maxCacheSize {
		entries := make([]struct {
			key       string
			timestamp time.Time
		}, 0, len(a.cache))

		for key, entry := range a.cache {
			entries = append(entries, struct {
				key       string
				timestamp time.Time
			}{key, entry.timestamp})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})

		for i := 0; i < len(entries)-a.maxCacheSize; i++ {
			delete(a.cache, entries[i].key)
		}
	}

	a.lastCleanup = now
}

// SetMaxCacheSize sets the cache size limit and enforces it immediately.
func (a *Analyzer) SetMaxCacheSize(size int) {
	a.cacheMutex.Lock()
	a.maxCacheSize = size
	a.cacheMutex.Unlock()
	a.cleanup()
}

// SetCacheTTL sets the cache TTL.
func (a *Analyzer) SetCacheTTL(ttl time.Duration) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cacheTTL = ttl
}

// ClearCache drops all cached analyses.
func (a *Analyzer) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

// generateCacheKey creates a unique key for one URL and vertical
func generateCacheKey(url, vertical string) string {
	hash := md5.Sum([]byte(url + "|" + vertical))
	return hex.EncodeToString(hash[:])
}

// GetCacheStats returns the cache entry count along with this month's
// hit and miss counters.
func (a *Analyzer) GetCacheStats() CacheStats {
	current := a.stats.GetCurrentStats()

	a.cacheMutex.RLock()
	entries := len(a.cache)
	ttl := a.cacheTTL
	a.cacheMutex.RUnlock()

	return CacheStats{
		Entries: entries,
		Hits:    current.CacheHits,
		Misses:  current.CacheMisses,
		TTL:     ttl,
	}
}

// IsCached reports whether a fresh cached analysis exists.
func (a *Analyzer) IsCached(url, vertical string) bool {
	cacheKey := generateCacheKey(url, vertical)

	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[cacheKey]
	return found && time.Since(entry.timestamp) < a.cacheTTL
}

// Analyze runs the pipeline for one URL: fetch, extract, score both
// components, and generate recommendations when a generator is configured.
// Cached results come back with CacheHit set and a zero-cost short circuit.
func (a *Analyzer) Analyze(ctx context.Context, pageURL, vertical string) (Analysis, error) {
	cacheKey := generateCacheKey(pageURL, vertical)

	a.cacheMutex.RLock()
	needsCleanup := time.Since(a.lastCleanup) > a.cleanupInterval
	entry, found := a.cache[cacheKey]
	ttl := a.cacheTTL
	a.cacheMutex.RUnlock()

	if needsCleanup {
		go a.cleanup()
	}

	if found && time.Since(entry.timestamp) < ttl {
		a.stats.RecordAnalysis(true)
		a.metrics.RecordCacheHit()
		result := entry.analysis
		result.CacheHit = true
		return result, nil
	}
	a.metrics.RecordCacheMiss()

	start := time.Now()
	analysis, err := a.analyze(ctx, pageURL, vertical)
	if err != nil {
		a.metrics.RecordFetchFailure()
		return Analysis{}, err
	}
	a.metrics.ObserveAnalysisDuration(time.Since(start))
	a.metrics.ObserveScore("seo", vertical, analysis.SEO.Score)
	a.metrics.ObserveScore("geo", vertical, analysis.GEO.Score)
	a.stats.RecordAnalysis(false)

	a.cacheMutex.Lock()
	a.cache[cacheKey] = cacheEntry{analysis: analysis, timestamp: time.Now()}
	a.cacheMutex.Unlock()

	return analysis, nil
}

// analyze is the fresh path: fetch and extract, then run the two scoring
// components concurrently. They share nothing but the read-only signals.
func (a *Analyzer) analyze(ctx context.Context, pageURL, vertical string) (Analysis, error) {
	signals, err := a.fetch(ctx, pageURL)
	if err != nil {
		return Analysis{}, err
	}

	now := time.Now()
	cfg := scoring.VerticalConfig(vertical)
	ai := scoring.NewAIReadiness(cfg)

	var (
		wg  sync.WaitGroup
		seo scoring.Evaluation
		geo scoring.Evaluation
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		seo = a.traditional.Evaluate(signals)
	}()
	go func() {
		defer wg.Done()
		geo = ai.Evaluate(signals, now)
	}()
	wg.Wait()

	// The raw document is only needed for scoring; keep the envelope small.
	signals.RawHTML = ""

	analysis := Analysis{
		ID:        uuid.NewString(),
		URL:       pageURL,
		Vertical:  vertical,
		FetchedAt: now,
		Signals:   signals,
		SEO:       seo,
		GEO:       geo,
	}
	analysis.Recommendations = a.recommendations(ctx, pageURL, vertical, cfg, seo, geo)

	return analysis, nil
}

// fetch downloads the page and extracts its signals, measuring load time
// around the fetch and body read.
func (a *Analyzer) fetch(ctx context.Context, pageURL string) (extract.PageSignals, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return extract.PageSignals{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return extract.PageSignals{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	pageSize := 0
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.Atoi(contentLength); err == nil {
			pageSize = size
		}
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, resp.Body); err != nil {
		return extract.PageSignals{}, fmt.Errorf("failed to read page: %w", err)
	}
	if pageSize == 0 {
		pageSize = buf.Len()
	}

	loadTime := time.Since(start)

	meta := extract.FetchMeta{
		StatusCode: resp.StatusCode,
		LoadTimeMs: int(loadTime.Milliseconds()),
		PageSizeKB: pageSize / 1024,
	}

	return a.extractor.Extract(pageURL, buf.String(), meta), nil
}

// recommendations collects weak factors from both evaluations and asks the
// generator for fixes under a bounded timeout. Failures degrade to none.
func (a *Analyzer) recommendations(ctx context.Context, pageURL, vertical string, cfg scoring.RubricConfig, seo, geo scoring.Evaluation) []recommend.Item {
	if a.generator == nil {
		return nil
	}

	weak := append(
		recommend.CollectWeak("seo", seo, scoring.TraditionalFactorMax),
		recommend.CollectWeak("geo", geo, cfg.FactorMax)...,
	)
	if len(weak) == 0 {
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, a.genTimeout)
	defer cancel()

	items, err := a.generator.Generate(genCtx, pageURL, vertical, weak)
	if err != nil {
		a.log.Warn("recommendation generation failed",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		a.stats.RecordRecommendationFailure()
		a.metrics.RecordRecommendationFailure()
		return nil
	}

	return items
}
