package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/searchpulse/backend/scoring"
)

// ErrNotFound is returned when a query matches no stored analyses.
var ErrNotFound = errors.New("history: not found")

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    vertical TEXT NOT NULL,
    seo_score INTEGER NOT NULL,
    geo_score INTEGER NOT NULL,
    seo_breakdown TEXT NOT NULL,
    geo_breakdown TEXT NOT NULL,
    word_count INTEGER NOT NULL DEFAULT 0,
    load_time_ms INTEGER NOT NULL DEFAULT 0,
    status_code INTEGER NOT NULL DEFAULT 0,
    page_size_kb INTEGER NOT NULL DEFAULT 0,
    detected_language TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_url ON analyses(url);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

// Record is one persisted analysis. The full factor breakdowns are stored
// as JSON alongside the denormalized scores so trend queries stay cheap.
type Record struct {
	ID               string             `json:"id"`
	URL              string             `json:"url"`
	Vertical         string             `json:"vertical"`
	SEO              scoring.Evaluation `json:"seo"`
	GEO              scoring.Evaluation `json:"geo"`
	WordCount        int                `json:"wordCount"`
	LoadTimeMs       int                `json:"loadTimeMs"`
	StatusCode       int                `json:"statusCode"`
	PageSizeKB       int                `json:"pageSizeKB"`
	DetectedLanguage string             `json:"detectedLanguage,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// Trend summarizes how one URL's scores moved across stored analyses.
type Trend struct {
	URL      string    `json:"url"`
	Samples  int       `json:"samples"`
	FirstSEO int       `json:"firstSeoScore"`
	LastSEO  int       `json:"lastSeoScore"`
	BestSEO  int       `json:"bestSeoScore"`
	FirstGEO int       `json:"firstGeoScore"`
	LastGEO  int       `json:"lastGeoScore"`
	BestGEO  int       `json:"bestGeoScore"`
	FirstAt  time.Time `json:"firstAt"`
	LastAt   time.Time `json:"lastAt"`
}

// Store persists analysis records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts one record. A missing ID or CreatedAt is filled in.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	seoJSON, err := json.Marshal(rec.SEO)
	if err != nil {
		return fmt.Errorf("failed to encode seo breakdown: %w", err)
	}
	geoJSON, err := json.Marshal(rec.GEO)
	if err != nil {
		return fmt.Errorf("failed to encode geo breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (
			id, url, vertical, seo_score, geo_score,
			seo_breakdown, geo_breakdown,
			word_count, load_time_ms, status_code, page_size_kb,
			detected_language, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.URL, rec.Vertical, rec.SEO.Score, rec.GEO.Score,
		string(seoJSON), string(geoJSON),
		rec.WordCount, rec.LoadTimeMs, rec.StatusCode, rec.PageSizeKB,
		rec.DetectedLanguage, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// Recent returns the most recent analyses across all URLs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, vertical, seo_breakdown, geo_breakdown,
			word_count, load_time_ms, status_code, page_size_kb,
			detected_language, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByURL returns the most recent analyses of one URL, newest first.
func (s *Store) ByURL(ctx context.Context, url string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, vertical, seo_breakdown, geo_breakdown,
			word_count, load_time_ms, status_code, page_size_kb,
			detected_language, created_at
		FROM analyses
		WHERE url = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Trend reports first, latest and best scores for one URL. Returns
// ErrNotFound when the URL has never been analyzed.
func (s *Store) Trend(ctx context.Context, url string) (*Trend, error) {
	t := &Trend{URL: url}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(seo_score), 0), COALESCE(MAX(geo_score), 0)
		FROM analyses
		WHERE url = ?
	`, url).Scan(&t.Samples, &t.BestSEO, &t.BestGEO)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trend: %w", err)
	}
	if t.Samples == 0 {
		return nil, ErrNotFound
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT seo_score, geo_score, created_at
		FROM analyses
		WHERE url = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, url).Scan(&t.FirstSEO, &t.FirstGEO, &t.FirstAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read first analysis: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT seo_score, geo_score, created_at
		FROM analyses
		WHERE url = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, url).Scan(&t.LastSEO, &t.LastGEO, &t.LastAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read last analysis: %w", err)
	}

	return t, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec     Record
			seoJSON string
			geoJSON string
		)
		err := rows.Scan(&rec.ID, &rec.URL, &rec.Vertical, &seoJSON, &geoJSON,
			&rec.WordCount, &rec.LoadTimeMs, &rec.StatusCode, &rec.PageSizeKB,
			&rec.DetectedLanguage, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(seoJSON), &rec.SEO); err != nil {
			return nil, fmt.Errorf("failed to decode seo breakdown: %w", err)
		}
		if err := json.Unmarshal([]byte(geoJSON), &rec.GEO); err != nil {
			return nil, fmt.Errorf("failed to decode geo breakdown: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}
	return records, nil
}
