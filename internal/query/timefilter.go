package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	aroundRe  = regexp.MustCompile(`around\s+(\d{1,2})\s*(am|pm)`)
	lastRe    = regexp.MustCompile(`last\s+(\d+)\s+(hour|minute)s?`)
	lastOneRe = regexp.MustCompile(`last\s+(hour|minute)`)
)

// ParseTimeFilter turns a natural-language time expression into a
// [start, end) window in the deployment timezone. Supported forms:
// "today", "yesterday", optionally qualified with "around 3pm" (a two
// hour window centered on the hour), "last N hours", "last N minutes",
// and ISO timestamps (a one hour window centered on the instant).
func ParseTimeFilter(s string, loc *time.Location, now time.Time) (start, end time.Time, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("empty time filter")
	}
	now = now.In(loc)

	day := time.Time{}
	switch {
	case strings.Contains(s, "yesterday"):
		day = now.AddDate(0, 0, -1)
	case strings.Contains(s, "today"):
		day = now
	}
	if !day.IsZero() {
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
		if m := aroundRe.FindStringSubmatch(s); m != nil {
			hour, _ := strconv.Atoi(m[1])
			if m[2] == "pm" && hour != 12 {
				hour += 12
			}
			if m[2] == "am" && hour == 12 {
				hour = 0
			}
			center := midnight.Add(time.Duration(hour) * time.Hour)
			return center.Add(-time.Hour), center.Add(time.Hour), nil
		}
		return midnight, midnight.AddDate(0, 0, 1), nil
	}

	if m := lastRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := time.Hour
		if m[2] == "minute" {
			unit = time.Minute
		}
		return now.Add(-time.Duration(n) * unit), now, nil
	}
	if m := lastOneRe.FindStringSubmatch(s); m != nil {
		unit := time.Hour
		if m[1] == "minute" {
			unit = time.Minute
		}
		return now.Add(-unit), now, nil
	}

	if strings.Contains(s, "t") {
		iso := strings.ToUpper(s)
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if ts, perr := time.ParseInLocation(layout, iso, loc); perr == nil {
				return ts.Add(-30 * time.Minute), ts.Add(30 * time.Minute), nil
			}
		}
	}

	return time.Time{}, time.Time{}, fmt.Errorf("unrecognized time filter %q", s)
}
