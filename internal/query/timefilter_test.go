package query

import (
	"testing"
	"time"
)

func tfLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func TestParseToday(t *testing.T) {
	loc := tfLoc(t)
	now := time.Date(2025, 6, 17, 15, 30, 0, 0, loc)

	start, end, err := ParseTimeFilter("today", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(time.Date(2025, 6, 17, 0, 0, 0, 0, loc)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, 6, 18, 0, 0, 0, 0, loc)) {
		t.Errorf("end = %v", end)
	}
}

func TestParseYesterday(t *testing.T) {
	loc := tfLoc(t)
	now := time.Date(2025, 6, 17, 15, 30, 0, 0, loc)

	start, end, err := ParseTimeFilter("yesterday", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, loc)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, 6, 17, 0, 0, 0, 0, loc)) {
		t.Errorf("end = %v", end)
	}
}

func TestParseYesterdayAround(t *testing.T) {
	loc := tfLoc(t)
	now := time.Date(2025, 6, 17, 15, 30, 0, 0, loc)

	start, end, err := ParseTimeFilter("yesterday around 3pm", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(time.Date(2025, 6, 16, 14, 0, 0, 0, loc)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, 6, 16, 16, 0, 0, 0, loc)) {
		t.Errorf("end = %v", end)
	}
}

func TestParseAroundEdgeHours(t *testing.T) {
	loc := tfLoc(t)
	now := time.Date(2025, 6, 17, 15, 30, 0, 0, loc)

	start, _, err := ParseTimeFilter("today around 12am", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(time.Date(2025, 6, 16, 23, 0, 0, 0, loc)) {
		t.Errorf("12am start = %v", start)
	}

	start, _, err = ParseTimeFilter("today around 12pm", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(time.Date(2025, 6, 17, 11, 0, 0, 0, loc)) {
		t.Errorf("12pm start = %v", start)
	}
}

func TestParseLastN(t *testing.T) {
	loc := tfLoc(t)
	now := time.Date(2025, 6, 17, 15, 30, 0, 0, loc)

	start, end, err := ParseTimeFilter("last 6 hours", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(now.Add(-6*time.Hour)) || !end.Equal(now) {
		t.Errorf("window = [%v, %v]", start, end)
	}

	start, _, err = ParseTimeFilter("last 30 minutes", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(now.Add(-30 * time.Minute)) {
		t.Errorf("start = %v", start)
	}

	start, _, err = ParseTimeFilter("last hour", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	if !start.Equal(now.Add(-time.Hour)) {
		t.Errorf("last hour start = %v", start)
	}
}

func TestParseISOTimestamp(t *testing.T) {
	loc := tfLoc(t)
	now := time.Date(2025, 6, 17, 15, 30, 0, 0, loc)

	start, end, err := ParseTimeFilter("2025-06-17T14:00:00", loc, now)
	if err != nil {
		t.Fatalf("ParseTimeFilter: %v", err)
	}
	center := time.Date(2025, 6, 17, 14, 0, 0, 0, loc)
	if !start.Equal(center.Add(-30*time.Minute)) || !end.Equal(center.Add(30*time.Minute)) {
		t.Errorf("window = [%v, %v]", start, end)
	}
}

func TestParseUnrecognized(t *testing.T) {
	loc := tfLoc(t)
	now := time.Now()

	if _, _, err := ParseTimeFilter("fortnight ago", loc, now); err == nil {
		t.Error("expected error for unrecognized filter")
	}
	if _, _, err := ParseTimeFilter("", loc, now); err == nil {
		t.Error("expected error for empty filter")
	}
}
