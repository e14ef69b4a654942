package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/valyala/fastjson"

	"github.com/cleptogk/logger/internal/model"
	"github.com/cleptogk/logger/internal/store"
)

const (
	defaultLimit = 100
	maxLimit     = 500
	maxOffset    = 10000
)

// Engine resolves filters to index sets, fetches candidates in
// parallel, applies content filters and returns paginated pages
// newest-first. Results are cached for a short window.
type Engine struct {
	store *store.Client
	cache *resultCache
	loc   *time.Location
}

func NewEngine(s *store.Client, loc *time.Location, cacheTTL time.Duration) (*Engine, error) {
	cache, err := newResultCache(s, cacheTTL)
	if err != nil {
		return nil, err
	}
	return &Engine{store: s, cache: cache, loc: loc}, nil
}

// Logs executes a filtered query. Identical filters within the cache
// window return the cached page byte-for-byte.
func (e *Engine) Logs(ctx context.Context, f model.QueryFilter) (*model.QueryResult, error) {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Offset > maxOffset {
		f.Offset = maxOffset
	}

	cacheKey := e.cache.keyFor(f)
	if res, ok := e.cache.get(cacheKey); ok {
		return res, nil
	}

	keys, err := e.resolveKeys(ctx, f)
	if err != nil {
		return nil, err
	}

	candidates, err := e.fetchSets(ctx, keys, f)
	if err != nil {
		return nil, err
	}

	candidates = filterCandidates(candidates, f)

	// Newest first across all merged sets.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ts.After(candidates[j].ts)
	})

	total := len(candidates)
	lo := f.Offset
	if lo > total {
		lo = total
	}
	hi := lo + f.Limit
	if hi > total {
		hi = total
	}

	res := &model.QueryResult{
		Logs:   make([]model.LogRecord, 0, hi-lo),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	for _, c := range candidates[lo:hi] {
		var rec model.LogRecord
		if err := json.Unmarshal(c.raw, &rec); err != nil {
			log.Printf("Skipping malformed index entry: %v", err)
			continue
		}
		res.Logs = append(res.Logs, rec)
	}

	if err := e.cache.put(cacheKey, res); err != nil {
		log.Printf("Result cache write failed: %v", err)
	}
	return res, nil
}

// resolveKeys maps the filter to concrete index set keys. Fully
// specified filters hit one key directly; wildcards enumerate the
// matching primary sets.
func (e *Engine) resolveKeys(ctx context.Context, f model.QueryFilter) ([]string, error) {
	host := wildcardDefault(f.Host)
	app := wildcardDefault(f.Application)
	component := wildcardDefault(f.Component)

	// A step filter without a run identifier spans every run's step
	// set, so it always goes through enumeration.
	stepAcrossRuns := f.StepName != "" && f.RefreshID == ""

	direct := !strings.Contains(host, "*") && !strings.Contains(app, "*") &&
		!strings.Contains(component, "*") && !stepAcrossRuns
	if direct {
		switch {
		case f.RefreshID != "" && f.StepName != "":
			return []string{store.StepKey(host, app, component, f.RefreshID, f.StepName)}, nil
		case f.RefreshID != "":
			return []string{store.RefreshKey(host, app, component, f.RefreshID)}, nil
		case f.Level != "":
			return []string{store.LevelKey(host, app, component, strings.ToUpper(f.Level))}, nil
		default:
			return []string{store.PrimaryKey(host, app, component)}, nil
		}
	}

	pattern := fmt.Sprintf("logs:%s:%s:%s", host, app, component)
	switch {
	case f.RefreshID != "" && f.StepName != "":
		pattern += ":" + f.RefreshID + ":" + f.StepName
	case f.RefreshID != "":
		pattern += ":" + f.RefreshID + ":all"
	case stepAcrossRuns:
		pattern += ":*:" + f.StepName
	case f.Level != "":
		pattern += ":level:" + strings.ToUpper(f.Level)
	}

	keys, err := e.store.Keys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("enumerating index sets: %w", err)
	}

	// A bare source pattern also matches secondary sets; keep only
	// primary keys (exactly host:app:component after the prefix) and
	// skip the meta and stats namespaces.
	if f.RefreshID == "" && f.StepName == "" && f.Level == "" {
		primary := keys[:0]
		for _, k := range keys {
			rest := strings.TrimPrefix(k, "logs:")
			if strings.HasPrefix(rest, "meta:") || strings.HasPrefix(rest, "stats:") || strings.HasPrefix(rest, "queue:") {
				continue
			}
			if strings.Count(rest, ":") == 2 {
				primary = append(primary, k)
			}
		}
		keys = primary
	}
	return keys, nil
}

type candidate struct {
	raw []byte
	ts  time.Time
}

// fetchSets pulls the newest limit+offset members of every key in
// parallel and pre-parses the fields used for filtering and ordering.
func (e *Engine) fetchSets(ctx context.Context, keys []string, f model.QueryFilter) ([]candidate, error) {
	maxScore, minScore := "+inf", "-inf"
	if !f.EndTime.IsZero() {
		maxScore = fmt.Sprintf("%d", f.EndTime.Unix())
	}
	if !f.StartTime.IsZero() {
		minScore = fmt.Sprintf("%d", f.StartTime.Unix())
	}
	fetch := f.Limit + f.Offset

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []candidate
		firstErr   error
	)
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			raws, err := redis.ByteSlices(e.store.DoContext(ctx,
				"ZREVRANGEBYSCORE", key, maxScore, minScore, "LIMIT", 0, fetch))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil && err != redis.ErrNil {
					firstErr = fmt.Errorf("reading %s: %w", key, err)
				}
				return
			}
			var p fastjson.Parser
			for _, raw := range raws {
				v, perr := p.ParseBytes(raw)
				if perr != nil {
					continue
				}
				ts, terr := time.Parse(time.RFC3339Nano, string(v.GetStringBytes("timestamp")))
				if terr != nil {
					continue
				}
				candidates = append(candidates, candidate{raw: append([]byte(nil), raw...), ts: ts})
			}
		}(key)
	}
	wg.Wait()
	if firstErr != nil && len(candidates) == 0 {
		return nil, firstErr
	}
	return candidates, nil
}

// filterCandidates applies the message content filters. An invalid
// regex pattern is logged and dropped rather than failing the query.
func filterCandidates(candidates []candidate, f model.QueryFilter) []candidate {
	search := strings.ToLower(f.Search)
	var patternRe *regexp.Regexp
	if f.Pattern != "" {
		re, err := regexp.Compile("(?i)" + f.Pattern)
		if err != nil {
			log.Printf("Ignoring invalid pattern %q: %v", f.Pattern, err)
		} else {
			patternRe = re
		}
	}
	if search == "" && patternRe == nil {
		return candidates
	}

	var p fastjson.Parser
	kept := candidates[:0]
	for _, c := range candidates {
		v, err := p.ParseBytes(c.raw)
		if err != nil {
			continue
		}
		msg := string(v.GetStringBytes("message"))
		if search != "" && !strings.Contains(strings.ToLower(msg), search) {
			continue
		}
		if patternRe != nil && !patternRe.MatchString(msg) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Search scans a host's primary sets for a free-text match, newest
// first per set. It is a discovery aid, not a paginated query.
func (e *Engine) Search(ctx context.Context, host, query string, limit int) ([]model.LogRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	keys, err := e.resolveKeys(ctx, model.QueryFilter{Host: host})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var p fastjson.Parser
	matches := make([]model.LogRecord, 0, limit)
	for _, key := range keys {
		raws, err := redis.ByteSlices(e.store.DoContext(ctx, "ZREVRANGE", key, 0, 99))
		if err != nil {
			continue
		}
		for _, raw := range raws {
			v, perr := p.ParseBytes(raw)
			if perr != nil {
				continue
			}
			if !strings.Contains(strings.ToLower(string(v.GetStringBytes("message"))), needle) {
				continue
			}
			var rec model.LogRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				continue
			}
			matches = append(matches, rec)
			if len(matches) >= limit {
				return matches, nil
			}
		}
	}
	return matches, nil
}

func wildcardDefault(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
