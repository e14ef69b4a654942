package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cleptogk/logger/internal/model"
)

// Timestamp patterns in priority order: ISO-8601 with UTC offset,
// ISO-8601 without offset, then the bare "YYYY-MM-DD HH:MM:SS" form.
var timestampPatterns = []struct {
	re     *regexp.Regexp
	layout string
	local  bool // parse in the deployment timezone
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?[+-]\d{2}:\d{2}`), "2006-01-02T15:04:05.999999999Z07:00", false},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?`), "2006-01-02T15:04:05.999999999", true},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`), "2006-01-02 15:04:05", true},
}

var (
	refreshRe  = regexp.MustCompile(`\[(Refresh-\d+)\]`)
	stepRe     = regexp.MustCompile(`(?i)\bstep\s*(\d+)(?:/(\d+))?`)
	stepDeclRe = regexp.MustCompile(`(?i)\bstep\s*\d+(?:/\d+)?\s*:`)
	durationRe = regexp.MustCompile(`(?i)\bin\s+(\d+(?:\.\d+)?)\s+seconds?`)
)

// Fields holds everything recoverable from one raw line. Zero values
// mean the field was not present.
type Fields struct {
	Timestamp       time.Time
	Level           string
	RefreshID       string
	StepNumber      int
	DurationSeconds float64
	StepStatus      string
}

// Extractor parses raw log lines. Bare timestamps (no UTC offset) are
// interpreted in the configured deployment timezone.
type Extractor struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Extractor {
	return &Extractor{loc: loc, now: time.Now}
}

// Line extracts structured fields from one raw line. Unparseable
// timestamps fall back to the current time; the level defaults to
// INFO. Extraction never fails.
func (e *Extractor) Line(line string) Fields {
	f := Fields{
		Timestamp: e.timestamp(line),
		Level:     Level(line),
	}

	if m := refreshRe.FindStringSubmatch(line); m != nil {
		f.RefreshID = m[1]
	}
	if m := stepRe.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			f.StepNumber = n
		}
	}
	if m := durationRe.FindStringSubmatch(line); m != nil {
		if d, err := strconv.ParseFloat(m[1], 64); err == nil {
			f.DurationSeconds = d
		}
	}
	f.StepStatus = stepStatus(line)
	return f
}

func (e *Extractor) timestamp(line string) time.Time {
	for _, p := range timestampPatterns {
		m := p.re.FindString(line)
		if m == "" {
			continue
		}
		var ts time.Time
		var err error
		if p.local {
			ts, err = time.ParseInLocation(p.layout, m, e.loc)
		} else {
			ts, err = time.Parse(p.layout, m)
		}
		if err == nil {
			return ts
		}
	}
	return e.now().In(e.loc)
}

// Level maps keywords in a line to a log level, defaulting to INFO.
func Level(line string) string {
	upper := strings.ToUpper(line)
	switch {
	case containsAny(upper, "ERROR", "FAIL", "EXCEPTION", "CRITICAL"):
		return model.LevelError
	case strings.Contains(upper, "WARN"):
		return model.LevelWarning
	case containsAny(upper, "DEBUG", "TRACE"):
		return model.LevelDebug
	default:
		return model.LevelInfo
	}
}

func stepStatus(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "completed successfully"):
		return model.StepCompleted
	case strings.Contains(lower, "failed"):
		return model.StepFailed
	case strings.Contains(lower, "starting") && strings.Contains(lower, "workflow"):
		return model.StepWorkflowStarted
	case stepDeclRe.MatchString(line):
		return model.StepStarted
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
