package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cleptogk/logger/internal/model"
	"github.com/cleptogk/logger/internal/query"
)

// Rescanner triggers a full walk of the watched tree. Satisfied by the
// watch dispatcher; nil disables the rescan endpoint.
type Rescanner interface {
	Rescan() (int, error)
}

type Server struct {
	engine *query.Engine
	rescan Rescanner
	loc    *time.Location
	srv    *http.Server
}

func New(engine *query.Engine, rescan Rescanner, loc *time.Location) *Server {
	return &Server{engine: engine, rescan: rescan, loc: loc}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	// Longer patterns win, so /logs/search and /logs/stats are routed
	// before the generic /logs/{host} handler.
	mux.HandleFunc("/logs/search/", s.handleSearch)
	mux.HandleFunc("/logs/stats/", s.handleStats)
	mux.HandleFunc("/logs/", s.handleLogs)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ingest/rescan", s.handleRescan)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// handleLogs serves GET /logs/{host}. The host comes from the path;
// every other criterion arrives as a query parameter. "*" (or
// omission) widens host, app and component.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := splitPath(r.URL.Path, "/logs/")
	filter := model.QueryFilter{}
	if len(parts) > 0 {
		filter.Host = parts[0]
	}

	q := r.URL.Query()
	filter.Application = q.Get("app")
	filter.Component = q.Get("component")
	filter.Level = q.Get("level")
	filter.RefreshID = q.Get("refresh_id")
	filter.StepName = q.Get("step")
	filter.Search = q.Get("search")
	filter.Pattern = q.Get("pattern")

	if tf := q.Get("time"); tf != "" {
		start, end, err := query.ParseTimeFilter(tf, s.loc, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.StartTime = start
		filter.EndTime = end
	}
	if v := q.Get("start"); v != "" {
		if ts, err := time.ParseInLocation("2006-01-02T15:04:05", v, s.loc); err == nil {
			filter.StartTime = ts
		}
	}
	if v := q.Get("end"); v != "" {
		if ts, err := time.ParseInLocation("2006-01-02T15:04:05", v, s.loc); err == nil {
			filter.EndTime = ts
		}
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	res, err := s.engine.Logs(r.Context(), filter)
	if err != nil {
		log.Printf("Query error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "Query failed",
			"logs":  []model.LogRecord{},
		})
		return
	}
	writeJSON(w, res)
}

// handleSearch serves GET /logs/search/{host}?query=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := splitPath(r.URL.Path, "/logs/search/")
	host := ""
	if len(parts) > 0 {
		host = parts[0]
	}

	q := r.URL.Query().Get("query")
	if q == "" {
		writeError(w, http.StatusBadRequest, "Missing query parameter")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	matches, err := s.engine.Search(r.Context(), host, q, limit)
	if err != nil {
		log.Printf("Search error: %v", err)
		writeError(w, http.StatusServiceUnavailable, "Search failed")
		return
	}
	writeJSON(w, map[string]interface{}{
		"query":   q,
		"matches": matches,
		"count":   len(matches),
	})
}

// handleStats serves GET /logs/stats/{host}?app=...
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := splitPath(r.URL.Path, "/logs/stats/")
	host := ""
	if len(parts) > 0 {
		host = parts[0]
	}
	app := r.URL.Query().Get("app")

	totals, err := s.engine.Stats(r.Context(), host, app)
	if err != nil {
		log.Printf("Stats error: %v", err)
		writeError(w, http.StatusServiceUnavailable, "Stats failed")
		return
	}
	writeJSON(w, totals)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.engine.CheckHealth(r.Context())
	if h.Status != "healthy" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(h)
		return
	}
	writeJSON(w, h)
}

// handleRescan triggers a full backfill walk of the log tree.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.rescan == nil {
		writeError(w, http.StatusServiceUnavailable, "Rescan not available")
		return
	}

	queued, err := s.rescan.Rescan()
	if err != nil {
		log.Printf("Rescan error: %v", err)
		writeError(w, http.StatusInternalServerError, "Rescan failed")
		return
	}
	writeJSON(w, map[string]int{"queued": queued})
}

func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
