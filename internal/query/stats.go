package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gomodule/redigo/redis"

	"github.com/cleptogk/logger/internal/store"
)

// Stats returns the running ingest counters for a (host, application)
// pair. Wildcards aggregate counters across every matching pair.
func (e *Engine) Stats(ctx context.Context, host, app string) (map[string]int64, error) {
	host = wildcardDefault(host)
	app = wildcardDefault(app)

	keys := []string{store.StatsKey(host, app)}
	if host == "*" || app == "*" {
		var err error
		keys, err = e.store.Keys(ctx, fmt.Sprintf("logs:stats:%s:%s", host, app))
		if err != nil {
			return nil, fmt.Errorf("enumerating stats keys: %w", err)
		}
	}

	totals := make(map[string]int64)
	for _, key := range keys {
		fields, err := redis.StringMap(e.store.DoContext(ctx, "HGETALL", key))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		for field, val := range fields {
			n, perr := strconv.ParseInt(val, 10, 64)
			if perr != nil {
				continue
			}
			totals[field] += n
		}
	}
	return totals, nil
}

// Health reports store reachability and the number of live index keys.
type Health struct {
	Status    string `json:"status"`
	RedisKeys int    `json:"redis_keys"`
	Error     string `json:"error,omitempty"`
}

// CheckHealth pings the store and counts the log keyspace. A failed
// ping yields an unhealthy report, not an error.
func (e *Engine) CheckHealth(ctx context.Context) Health {
	if err := e.store.Ping(ctx); err != nil {
		return Health{Status: "unhealthy", Error: err.Error()}
	}
	keys, err := e.store.Keys(ctx, "logs:*")
	if err != nil {
		return Health{Status: "unhealthy", Error: err.Error()}
	}
	return Health{Status: "healthy", RedisKeys: len(keys)}
}
