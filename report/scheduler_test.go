package report

import (
	"testing"
	"time"
)

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler("America/New_York")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	defer s.Stop()

	if s.location.String() != "America/New_York" {
		t.Errorf("location = %q, want 'America/New_York'", s.location.String())
	}
}

func TestNewSchedulerInvalidTimezone(t *testing.T) {
	_, err := NewScheduler("Invalid/Zone")
	if err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestScheduleAndStop(t *testing.T) {
	s, _ := NewScheduler("UTC")
	defer s.Stop()

	// Testing actual cron execution timing is unreliable in unit tests,
	// so only verify the entry is registered.
	err := s.Schedule(time.Monday, "12:00", func() {})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	s.Start()

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Errorf("expected 1 cron entry, got %d", len(entries))
	}
}

func TestScheduleReplacesPrevious(t *testing.T) {
	s, _ := NewScheduler("UTC")
	defer s.Stop()

	if err := s.Schedule(time.Monday, "08:00", func() {}); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := s.Schedule(time.Friday, "18:30", func() {}); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Errorf("expected 1 cron entry after rescheduling, got %d", len(entries))
	}
}

func TestScheduleInvalidTime(t *testing.T) {
	s, _ := NewScheduler("UTC")
	defer s.Stop()

	tests := []string{"25:00", "12:60", "9:00", "noon", ""}
	for _, tt := range tests {
		if err := s.Schedule(time.Monday, tt, func() {}); err == nil {
			t.Errorf("Schedule(%q) expected error, got nil", tt)
		}
	}
}

func TestBuildCronSpec(t *testing.T) {
	tests := []struct {
		hour, minute int
		weekday      time.Weekday
		want         string
	}{
		{8, 30, time.Monday, "30 8 * * 1"},
		{18, 0, time.Sunday, "0 18 * * 0"},
		{23, 59, time.Saturday, "59 23 * * 6"},
	}

	for _, tt := range tests {
		got := buildCronSpec(tt.hour, tt.minute, tt.weekday)
		if got != tt.want {
			t.Errorf("buildCronSpec(%d, %d, %v) = %q, want %q",
				tt.hour, tt.minute, tt.weekday, got, tt.want)
		}
	}
}
