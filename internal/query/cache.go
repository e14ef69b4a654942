package query

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/klauspost/compress/zstd"

	"github.com/cleptogk/logger/internal/model"
	"github.com/cleptogk/logger/internal/store"
)

// resultCache keeps materialized query results for a short window so
// repeated identical queries (dashboards, retried agents) never hit
// the index sets twice. Values are zstd-compressed; result pages
// compress well since every record shares its key fields.
type resultCache struct {
	store   *store.Client
	ttl     time.Duration
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newResultCache(s *store.Client, ttl time.Duration) (*resultCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &resultCache{store: s, ttl: ttl, encoder: enc, decoder: dec}, nil
}

// keyFor derives a cache key from every filter parameter, so any
// change in criteria or pagination maps to a distinct entry.
func (c *resultCache) keyFor(f model.QueryFilter) string {
	parts := []string{
		f.Host, f.Application, f.Component, f.Level,
		f.RefreshID, f.StepName,
		strings.ToLower(f.Search), f.Pattern,
		f.StartTime.UTC().Format(time.RFC3339),
		f.EndTime.UTC().Format(time.RFC3339),
		fmt.Sprintf("%d:%d", f.Limit, f.Offset),
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return store.CacheKey(hex.EncodeToString(sum[:]))
}

func (c *resultCache) get(key string) (*model.QueryResult, bool) {
	raw, err := redis.Bytes(c.store.Do("GET", key))
	if err != nil {
		return nil, false
	}
	plain, err := c.decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, false
	}
	var res model.QueryResult
	if err := json.Unmarshal(plain, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *resultCache) put(key string, res *model.QueryResult) error {
	plain, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("serializing result: %w", err)
	}
	packed := c.encoder.EncodeAll(plain, make([]byte, 0, len(plain)))
	_, err = c.store.Do("SETEX", key, int(c.ttl.Seconds()), packed)
	return err
}
