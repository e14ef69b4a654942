package classify

import (
	"path/filepath"
	"strings"
)

// Source identifies where a log file's records belong. RefreshID and
// StepName are set only for workflow-structured per-step file layouts,
// in which case they override anything derived from message content.
type Source struct {
	Host        string
	Application string
	Component   string
	RefreshID   string
	StepName    string
}

// Classifier maps file paths and line content to logical sources. The
// pattern table and vocabularies are injected at construction so each
// deployment (and each test) can carry its own.
type Classifier struct {
	hosts map[string]bool
	apps  []string
	table Table
	steps map[int]string
}

func New(table Table, hosts, apps []string, steps map[int]string) *Classifier {
	hostSet := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		hostSet[h] = true
	}
	return &Classifier{hosts: hostSet, apps: apps, table: table, steps: steps}
}

// Classify derives the source triple from a file's location. Host and
// application come from exact path segments; component comes from a
// structured component directory or a filename token. Anything not
// recognized stays "unknown" (or "general" for the component), letting
// content-based classification refine it per line.
func (c *Classifier) Classify(path string) Source {
	segs := strings.Split(filepath.ToSlash(path), "/")
	src := Source{Host: "unknown", Application: "unknown", Component: "general"}

	for _, seg := range segs {
		if c.hosts[seg] {
			src.Host = seg
			break
		}
	}

	filename := ""
	if len(segs) > 0 {
		filename = segs[len(segs)-1]
	}

	for _, app := range c.apps {
		if containsSegment(segs, app) {
			src.Application = app
			break
		}
	}
	if src.Application == "unknown" {
		for _, app := range c.apps {
			if strings.Contains(filename, app) {
				src.Application = app
				break
			}
		}
	}

	// Structured per-step layout:
	// .../<component>/<refresh_id>/<step_name>.log
	for _, rule := range c.table[src.Application] {
		idx := segmentIndex(segs, rule.Component)
		if idx < 0 {
			continue
		}
		src.Component = rule.Component
		if idx+2 < len(segs) {
			src.RefreshID = segs[idx+1]
			src.StepName = strings.TrimSuffix(segs[idx+2], ".log")
		}
		return src
	}

	// Legacy flat layout: component encoded in the filename.
	for _, rule := range c.table[src.Application] {
		if strings.Contains(filename, rule.Component) {
			src.Component = rule.Component
			return src
		}
	}
	return src
}

// ComponentFor matches line content against the pattern table. The
// first matching component wins; within it, the first matching step
// wins. Unmatched lines land in "general".
func (c *Classifier) ComponentFor(app, message string) (component, step string) {
	lower := strings.ToLower(message)
	for _, rule := range c.table[app] {
		for _, re := range rule.Patterns {
			if !re.MatchString(lower) {
				continue
			}
			for _, sr := range rule.Steps {
				for _, sre := range sr.Patterns {
					if sre.MatchString(lower) {
						return rule.Component, sr.Step
					}
				}
			}
			return rule.Component, ""
		}
	}
	return "general", ""
}

// StepName resolves a message-derived step number to the workflow's
// canonical step name, or "" when the number is unknown.
func (c *Classifier) StepName(number int) string {
	return c.steps[number]
}

func containsSegment(segs []string, want string) bool {
	return segmentIndex(segs, want) >= 0
}

func segmentIndex(segs []string, want string) int {
	for i, seg := range segs {
		if seg == want {
			return i
		}
	}
	return -1
}
