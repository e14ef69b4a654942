package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all environment-driven settings.
type Config struct {
	RedisHost string
	RedisPort int
	RedisDB   int

	RetentionTTL    time.Duration // how long index sets and cursors live
	MaxLinesPerFile int           // 0 = unlimited
	MaxFileSize     int64         // bytes; files above this are skipped
	Workers         int
	CacheTTL        time.Duration
	RescanInterval  time.Duration

	LogRoot  string
	Timezone *time.Location

	// Recognized vocabularies for path classification.
	Hosts        []string
	Applications []string
}

// FromEnv builds a Config from environment variables, falling back to
// the deployment defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		RedisHost:       envStr("REDIS_HOST", "127.0.0.1"),
		RedisPort:       envInt("REDIS_PORT", 6379),
		RedisDB:         envInt("REDIS_DB", 0),
		RetentionTTL:    time.Duration(envInt("LOG_TTL_HOURS", 24)) * time.Hour,
		MaxLinesPerFile: envInt("MAX_LINES_PER_FILE", 5000),
		MaxFileSize:     int64(envInt("MAX_FILE_SIZE_MB", 50)) * 1024 * 1024,
		Workers:         envInt("WORKER_COUNT", 4),
		CacheTTL:        time.Duration(envInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		RescanInterval:  time.Duration(envInt("RESCAN_INTERVAL_MINUTES", 30)) * time.Minute,
		LogRoot:         envStr("LOG_ROOT", "/var/log/centralized"),
		Hosts:           envList("KNOWN_HOSTS", "ssdev,ssdvr,ssmcp,ssrun,sslog"),
		Applications:    envList("KNOWN_APPS", "sports-scheduler,auto-scraper,system"),
	}

	tz := envStr("LOG_TIMEZONE", "America/Los_Angeles")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_TIMEZONE %q: %w", tz, err)
	}
	cfg.Timezone = loc

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// RedisAddr returns the host:port pair for dialing.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envList(key, def string) []string {
	v := envStr(key, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
