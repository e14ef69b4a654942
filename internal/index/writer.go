package index

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cleptogk/logger/internal/model"
	"github.com/cleptogk/logger/internal/store"
)

// Writer fans structured records out to the primary and secondary
// index sets, applying the per-set cap and refreshing the retention
// TTL on every write.
type Writer struct {
	store *store.Client
	ttl   time.Duration
}

func NewWriter(s *store.Client, ttl time.Duration) *Writer {
	return &Writer{store: s, ttl: ttl}
}

// Write stores one record. Every set write is attempted even if an
// earlier one fails; the first error is returned after all attempts.
func (w *Writer) Write(rec *model.LogRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serializing record: %w", err)
	}
	score := rec.Timestamp.Unix()

	var firstErr error
	add := func(key string, cap int) {
		if err := w.addToSet(key, payload, score, cap); err != nil {
			log.Printf("Index write failed for %s: %v", key, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	add(store.PrimaryKey(rec.Host, rec.Application, rec.Component), store.CapPrimary)
	add(store.LevelKey(rec.Host, rec.Application, rec.Component, rec.Level), store.CapLevel)
	if rec.RefreshID != "" {
		add(store.RefreshKey(rec.Host, rec.Application, rec.Component, rec.RefreshID), store.CapRefresh)
		if rec.StepName != "" {
			add(store.StepKey(rec.Host, rec.Application, rec.Component, rec.RefreshID, rec.StepName), store.CapStep)
		}
	}

	if err := w.bumpStats(rec); err != nil {
		log.Printf("Stats update failed for %s/%s: %v", rec.Host, rec.Application, err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// addToSet performs the ZADD / EXPIRE / trim triple for one index set.
func (w *Writer) addToSet(key string, member []byte, score int64, cap int) error {
	if _, err := w.store.Do("ZADD", key, score, member); err != nil {
		return err
	}
	if _, err := w.store.Do("EXPIRE", key, int(w.ttl.Seconds())); err != nil {
		return err
	}
	// Trim everything but the newest cap members.
	_, err := w.store.Do("ZREMRANGEBYRANK", key, 0, -(cap + 1))
	return err
}

func (w *Writer) bumpStats(rec *model.LogRecord) error {
	key := store.StatsKey(rec.Host, rec.Application)
	if _, err := w.store.Do("HINCRBY", key, "total_logs", 1); err != nil {
		return err
	}
	if _, err := w.store.Do("HINCRBY", key, "level_"+rec.Level, 1); err != nil {
		return err
	}
	_, err := w.store.Do("EXPIRE", key, int(w.ttl.Seconds()))
	return err
}
