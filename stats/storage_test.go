package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewStorage(tempDir, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	t.Run("RecordAnalysis", func(t *testing.T) {
		storage.RecordAnalysis(false)
		storage.RecordAnalysis(true)
		storage.RecordAnalysis(true)
		storage.RecordRecommendationFailure()
		storage.RecordEmailSent()

		current := storage.GetCurrentStats()
		if current.Analyses != 3 {
			t.Errorf("Expected 3 analyses, got %d", current.Analyses)
		}
		if current.CacheHits != 2 {
			t.Errorf("Expected 2 cache hits, got %d", current.CacheHits)
		}
		if current.CacheMisses != 1 {
			t.Errorf("Expected 1 cache miss, got %d", current.CacheMisses)
		}
		if current.RecommendationFailures != 1 {
			t.Errorf("Expected 1 recommendation failure, got %d", current.RecommendationFailures)
		}
		if current.EmailsSent != 1 {
			t.Errorf("Expected 1 email sent, got %d", current.EmailsSent)
		}
		if current.LastUpdated.IsZero() {
			t.Error("LastUpdated should be set")
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		if err := storage.Close(); err != nil {
			t.Fatalf("Failed to flush storage: %v", err)
		}

		storage2, err := NewStorage(tempDir, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create second storage: %v", err)
		}
		defer storage2.Close()

		current := storage2.GetCurrentStats()
		if current.Analyses != 3 {
			t.Errorf("Expected 3 analyses after reload, got %d", current.Analyses)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		oldMonth := time.Now().AddDate(0, -2, 0).Format("2006-01")
		storage.mutex.Lock()
		storage.stats[oldMonth] = &MonthlyStats{
			Analyses:    100,
			LastUpdated: time.Now().AddDate(0, -2, 0),
		}
		storage.mutex.Unlock()

		storage.Cleanup()

		if _, exists := storage.GetMonthlyStats(oldMonth); exists {
			t.Error("Old stats should have been cleaned up")
		}
	})

	t.Run("FileSize", func(t *testing.T) {
		if err := storage.Close(); err != nil {
			t.Fatalf("Failed to flush storage: %v", err)
		}

		info, err := os.Stat(filepath.Join(tempDir, "stats.json"))
		if err != nil {
			t.Fatalf("Failed to stat file: %v", err)
		}
		if info.Size() > 1024 {
			t.Errorf("File size too large: %d bytes", info.Size())
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		fresh, err := NewStorage(t.TempDir(), zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create storage: %v", err)
		}
		defer fresh.Close()

		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					fresh.RecordAnalysis(j%2 == 0)
					fresh.GetCurrentStats()
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		current := fresh.GetCurrentStats()
		if current.Analyses != 1000 {
			t.Errorf("Expected 1000 analyses, got %d", current.Analyses)
		}
		if current.CacheHits+current.CacheMisses != 1000 {
			t.Errorf("Expected hits+misses == 1000, got %d", current.CacheHits+current.CacheMisses)
		}
	})
}

func TestGetAllMonths(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	storage.mutex.Lock()
	storage.stats["2026-01"] = &MonthlyStats{Analyses: 1}
	storage.stats["2026-03"] = &MonthlyStats{Analyses: 2}
	storage.stats["2025-12"] = &MonthlyStats{Analyses: 3}
	storage.mutex.Unlock()

	months := storage.GetAllMonths()
	if len(months) != 3 {
		t.Fatalf("Expected 3 months, got %d", len(months))
	}
	if months[0] != "2026-03" || months[2] != "2025-12" {
		t.Errorf("Months not sorted newest first: %v", months)
	}
}
