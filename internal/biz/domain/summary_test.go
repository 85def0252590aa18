package domain

import (
	"testing"
	"time"
)

func TestSummaryBuffer_DrainEmpties(t *testing.T) {
	b := NewSummaryBuffer()
	b.Append("one")
	b.Append("two")

	got := b.Drain()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("Expected [one two], got %v", got)
	}
	if b.Len() != 0 {
		t.Errorf("Expected empty buffer after drain, got %d", b.Len())
	}
	if len(b.Drain()) != 0 {
		t.Error("Expected second drain to be empty")
	}
}

func TestRenderDailySummary(t *testing.T) {
	got := RenderDailySummary([]string{"a", "b"})
	want := "🗓️ *Daily Summary Report:*\n\na\n\nb"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDailyCutoff_BeforeCutoff(t *testing.T) {
	loc := time.FixedZone("GST", 4*3600)
	c := DefaultCutoff(loc)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)

	if c.Reached(now) {
		t.Error("Expected cutoff not reached at 10:00")
	}
	if next := c.Next(now); !next.Equal(time.Date(2024, 1, 1, 23, 59, 0, 0, loc)) {
		t.Errorf("Expected same-day cutoff, got %v", next)
	}
	if d := c.Until(now); d != 13*time.Hour+59*time.Minute {
		t.Errorf("Expected 13h59m, got %v", d)
	}
}

func TestDailyCutoff_AfterCutoff(t *testing.T) {
	loc := time.FixedZone("GST", 4*3600)
	c := DefaultCutoff(loc)
	now := time.Date(2024, 1, 1, 23, 59, 30, 0, loc)

	if !c.Reached(now) {
		t.Error("Expected cutoff reached at 23:59:30")
	}
	if next := c.Next(now); !next.Equal(time.Date(2024, 1, 2, 23, 59, 0, 0, loc)) {
		t.Errorf("Expected next-day cutoff, got %v", next)
	}
}

func TestDailyCutoff_ExactlyAtCutoff(t *testing.T) {
	loc := time.FixedZone("GST", 4*3600)
	c := DefaultCutoff(loc)
	now := time.Date(2024, 1, 1, 23, 59, 0, 0, loc)

	if !c.Reached(now) {
		t.Error("Expected cutoff reached exactly at 23:59")
	}
	if c.Until(now) != 24*time.Hour {
		t.Errorf("Expected 24h until next cutoff, got %v", c.Until(now))
	}
}

func TestDailyCutoff_UsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("GST", 4*3600)
	c := DefaultCutoff(loc)
	// 20:00 UTC is 00:00 GST on the next day.
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

	if c.Reached(now) {
		t.Error("Expected a fresh GST day, cutoff not reached")
	}
	if next := c.Next(now); !next.Equal(time.Date(2024, 1, 2, 23, 59, 0, 0, loc)) {
		t.Errorf("Expected cutoff on GST day 2024-01-02, got %v", next)
	}
}

func TestParseCutoff(t *testing.T) {
	c, err := ParseCutoff("18:30", time.UTC)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.Hour != 18 || c.Minute != 30 || c.String() != "18:30" {
		t.Errorf("Unexpected cutoff %+v", c)
	}

	if _, err := ParseCutoff("25:00", time.UTC); err == nil {
		t.Error("Expected error for invalid cutoff")
	}
}
