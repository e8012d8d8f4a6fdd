package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/searchpulse/backend/analyzer"
	"github.com/searchpulse/backend/config"
	"github.com/searchpulse/backend/history"
	"github.com/searchpulse/backend/logging"
	"github.com/searchpulse/backend/metrics"
	"github.com/searchpulse/backend/middleware"
	"github.com/searchpulse/backend/recommend"
	"github.com/searchpulse/backend/report"
	"github.com/searchpulse/backend/stats"
)

var (
	cfg            *config.Config
	logger         *zap.Logger
	seoAnalyzer    *analyzer.Analyzer
	store          *history.Store
	statsStorage   *stats.Storage
	serviceMetrics *metrics.Metrics
	renderer       *report.Renderer
	mailer         *report.Mailer
)

func loadEnv() {
	// Try to load .env.development first (for local development)
	if err := godotenv.Load(".env.development"); err != nil {
		// If .env.development doesn't exist, try regular .env
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}
}

func main() {
	loadEnv()

	var err error
	cfg, err = config.Load(config.GetConfigPath())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger = logging.New(cfg.Log)
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	serviceMetrics = metrics.New("searchpulse")

	statsStorage, err = stats.NewStorage(cfg.Stats.Path, logger)
	if err != nil {
		logger.Fatal("failed to open stats storage", zap.Error(err))
	}
	statsStorage.Cleanup()

	store, err = history.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open history database", zap.Error(err))
	}

	// Recommendations are optional: without an API key the analyzer runs
	// scoring only.
	var generator *recommend.Generator
	if cfg.Gemini.APIKey != "" {
		generator, err = recommend.NewGenerator(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Warn("recommendations disabled", zap.Error(err))
			generator = nil
		}
	} else {
		logger.Info("no Gemini API key configured, recommendations disabled")
	}

	seoAnalyzer = analyzer.New(analyzer.Options{
		FetchTimeout:    time.Duration(cfg.Analyzer.FetchTimeoutSecs) * time.Second,
		CacheTTL:        time.Duration(cfg.Analyzer.CacheTTLMinutes) * time.Minute,
		MaxCacheSize:    cfg.Analyzer.CacheMaxEntries,
		UserAgent:       cfg.Analyzer.UserAgent,
		Generator:       generator,
		GenerateTimeout: time.Duration(cfg.Gemini.TimeoutSecs) * time.Second,
		Stats:           statsStorage,
		Metrics:         serviceMetrics,
		Logger:          logger,
	})

	renderer = report.NewRenderer()
	mailer = report.NewMailer(cfg.SMTP)

	var scheduler *report.Scheduler
	if cfg.Digest.Enabled {
		scheduler, err = report.NewScheduler(cfg.Digest.Timezone)
		if err != nil {
			logger.Fatal("failed to create digest scheduler", zap.Error(err))
		}
		if err := scheduler.Schedule(cfg.DigestWeekday(), cfg.Digest.Time, sendWeeklyDigest); err != nil {
			logger.Fatal("failed to schedule digest", zap.Error(err))
		}
		scheduler.Start()
		logger.Info("weekly digest scheduled",
			zap.String("weekday", cfg.Digest.Weekday),
			zap.String("time", cfg.Digest.Time),
			zap.String("timezone", cfg.Digest.Timezone))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: setupRouter(),
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	seoAnalyzer.Shutdown()
	if generator != nil {
		generator.Close()
	}
	if err := store.Close(); err != nil {
		logger.Error("history close", zap.Error(err))
	}
	if err := statsStorage.Close(); err != nil {
		logger.Error("stats close", zap.Error(err))
	}
}

func setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(middleware.ErrorHandler(logger))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.Use(middleware.TrackRequests(serviceMetrics))

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, float64(cfg.RateLimit.Burst))
	router.Use(rateLimiter.RateLimit())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", healthCheck)
		api.POST("/analyze", analyzeURL)
		api.GET("/history", analysisHistory)
		api.GET("/statistics", statistics)
	}

	return router
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

type analyzeRequest struct {
	URL      string `json:"url" binding:"required,url"`
	Vertical string `json:"vertical" binding:"omitempty,oneof=medical business"`
	Email    string `json:"email" binding:"omitempty,email"`
}

func analyzeURL(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if req.Vertical == "" {
		req.Vertical = "business"
	}

	logger.Info("analyzing url",
		zap.String("url", req.URL),
		zap.String("vertical", req.Vertical),
		zap.String("client", c.ClientIP()))

	analysis, err := seoAnalyzer.Analyze(c.Request.Context(), req.URL, req.Vertical)
	if err != nil {
		logger.Warn("analysis failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to analyze URL: " + err.Error(),
		})
		return
	}

	if !analysis.CacheHit {
		go persistAnalysis(analysis)
	}
	if req.Email != "" {
		go emailReport(req.Email, analysis)
	}

	c.JSON(http.StatusOK, analysis)
}

func analysisHistory(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be an integer between 1 and 100",
			})
			return
		}
		limit = parsed
	}

	ctx := c.Request.Context()
	url := c.Query("url")

	if url == "" {
		records, err := store.Recent(ctx, limit)
		if err != nil {
			logger.Error("history query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"analyses": records})
		return
	}

	records, err := store.ByURL(ctx, url, limit)
	if err != nil {
		logger.Error("history query failed", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	response := gin.H{"analyses": records}
	trend, err := store.Trend(ctx, url)
	switch {
	case err == nil:
		response["trend"] = trend
	case errors.Is(err, history.ErrNotFound):
		// No stored analyses for this URL; analyses is already empty.
	default:
		logger.Error("trend query failed", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, response)
}

func statistics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"current": statsStorage.GetCurrentStats(),
		"months":  statsStorage.GetAllMonths(),
		"cache":   seoAnalyzer.GetCacheStats(),
	})
}

// persistAnalysis stores a completed analysis off the request path.
func persistAnalysis(analysis analyzer.Analysis) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := history.Record{
		ID:               analysis.ID,
		URL:              analysis.URL,
		Vertical:         analysis.Vertical,
		SEO:              analysis.SEO,
		GEO:              analysis.GEO,
		WordCount:        analysis.Signals.WordCount,
		LoadTimeMs:       analysis.Signals.LoadTimeMs,
		StatusCode:       analysis.Signals.StatusCode,
		PageSizeKB:       analysis.Signals.PageSizeKB,
		DetectedLanguage: analysis.Signals.DetectedLanguage,
		CreatedAt:        analysis.FetchedAt,
	}
	if err := store.Save(ctx, rec); err != nil {
		logger.Error("persist analysis", zap.String("url", analysis.URL), zap.Error(err))
	}
}

// emailReport renders and sends a single-analysis report.
func emailReport(to string, analysis analyzer.Analysis) {
	data := report.NewAnalysisReport(analysis.URL, analysis.Vertical,
		analysis.SEO, analysis.GEO, analysis.Recommendations, analysis.FetchedAt)

	html, err := renderer.RenderAnalysis(data)
	if err != nil {
		logger.Error("render report", zap.String("url", analysis.URL), zap.Error(err))
		serviceMetrics.RecordEmail(false)
		return
	}

	if err := mailer.Send([]string{to}, "SearchPulse report for "+analysis.URL, html); err != nil {
		logger.Warn("send report", zap.String("url", analysis.URL), zap.Error(err))
		serviceMetrics.RecordEmail(false)
		return
	}

	serviceMetrics.RecordEmail(true)
	statsStorage.RecordEmailSent()
}

// sendWeeklyDigest runs on the configured schedule: recent analyses plus a
// per-URL trend summary, mailed to every digest recipient.
func sendWeeklyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	records, err := store.Recent(ctx, 50)
	if err != nil {
		logger.Error("digest: load recent analyses", zap.Error(err))
		return
	}

	seen := make(map[string]bool)
	var trends []history.Trend
	for _, rec := range records {
		if seen[rec.URL] {
			continue
		}
		seen[rec.URL] = true
		trend, err := store.Trend(ctx, rec.URL)
		if err != nil {
			logger.Warn("digest: trend query failed", zap.String("url", rec.URL), zap.Error(err))
			continue
		}
		trends = append(trends, *trend)
	}

	html, err := renderer.RenderDigest(report.DigestData{
		WeekOf:   time.Now(),
		Analyses: records,
		Trends:   trends,
	})
	if err != nil {
		logger.Error("digest: render failed", zap.Error(err))
		return
	}

	subject := "SearchPulse weekly digest: " + time.Now().Format("Jan 2, 2006")
	if err := mailer.Send(cfg.Digest.Recipients, subject, html); err != nil {
		logger.Error("digest: send failed", zap.Error(err))
		serviceMetrics.RecordEmail(false)
		return
	}

	serviceMetrics.RecordEmail(true)
	statsStorage.RecordEmailSent()
	logger.Info("weekly digest sent",
		zap.Int("analyses", len(records)),
		zap.Int("recipients", len(cfg.Digest.Recipients)))
}
