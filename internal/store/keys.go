package store

import "fmt"

// Per-set member caps. Once a set exceeds its cap the oldest-by-score
// members are trimmed so no set grows unbounded.
const (
	CapPrimary = 10000
	CapRefresh = 5000
	CapStep    = 1000
	CapLevel   = 1000
)

// QueueKey is the shared FIFO dispatch list of pending file paths,
// poppable by any worker.
const QueueKey = "logs:queue:pending"

// PrimaryKey is the time-ordered set holding every record for one
// (host, application, component) source.
func PrimaryKey(host, app, component string) string {
	return fmt.Sprintf("logs:%s:%s:%s", host, app, component)
}

// LevelKey is the level-scoped secondary set.
func LevelKey(host, app, component, level string) string {
	return fmt.Sprintf("logs:%s:%s:%s:level:%s", host, app, component, level)
}

// RefreshKey is the refresh-wide aggregate set covering every step of
// one workflow run.
func RefreshKey(host, app, component, refreshID string) string {
	return fmt.Sprintf("logs:%s:%s:%s:%s:all", host, app, component, refreshID)
}

// StepKey is the per-step set for one step of one workflow run.
func StepKey(host, app, component, refreshID, stepName string) string {
	return fmt.Sprintf("logs:%s:%s:%s:%s:%s", host, app, component, refreshID, stepName)
}

// MetaKey holds the FileCursor hash for one file fingerprint.
func MetaKey(host, fingerprint string) string {
	return fmt.Sprintf("logs:meta:%s:%s", host, fingerprint)
}

// StatsKey holds the running counters for one (host, application).
func StatsKey(host, app string) string {
	return fmt.Sprintf("logs:stats:%s:%s", host, app)
}

// CacheKey holds one materialized QueryResult.
func CacheKey(hash string) string {
	return "cache:" + hash
}
