package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"

	"github.com/cleptogk/logger/internal/index"
	"github.com/cleptogk/logger/internal/model"
	"github.com/cleptogk/logger/internal/query"
	"github.com/cleptogk/logger/internal/store"
)

type fakeRescanner struct {
	queued int
	err    error
}

func (f *fakeRescanner) Rescan() (int, error) { return f.queued, f.err }

func testServer(t *testing.T) (*Server, *index.Writer, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	addr := s.Addr()
	client := store.NewWithPool(&redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	})
	t.Cleanup(func() { client.Close() })

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	engine, err := query.NewEngine(client, loc, 300*time.Second)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return New(engine, &fakeRescanner{queued: 7}, loc), index.NewWriter(client, 24*time.Hour), s
}

func seed(t *testing.T, w *index.Writer, level, msg string) {
	t.Helper()
	err := w.Write(&model.LogRecord{
		Timestamp:   time.Date(2025, 6, 17, 10, 0, 0, 0, time.UTC),
		Level:       level,
		Message:     msg,
		Host:        "ssdvr",
		Application: "sports-scheduler",
		Component:   "iptv-orchestrator",
		FilePath:    "/var/log/a.log",
		LineNumber:  1,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestHandleLogs(t *testing.T) {
	srv, w, _ := testServer(t)
	seed(t, w, model.LevelError, "broken pipe")
	seed(t, w, model.LevelInfo, "all good")

	req := httptest.NewRequest(http.MethodGet, "/logs/ssdvr?app=sports-scheduler&component=iptv-orchestrator&level=ERROR", nil)
	rec := httptest.NewRecorder()
	srv.handleLogs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res model.QueryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Total != 1 || res.Logs[0].Message != "broken pipe" {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleLogsBadTimeFilter(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logs/ssdvr?time=fortnight+ago", nil)
	rec := httptest.NewRecorder()
	srv.handleLogs(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] == "" {
		t.Error("missing error message")
	}
}

func TestHandleLogsMethodNotAllowed(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/logs/ssdvr", nil)
	rec := httptest.NewRecorder()
	srv.handleLogs(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleLogsStoreUnavailable(t *testing.T) {
	srv, _, s := testServer(t)
	s.Close()

	req := httptest.NewRequest(http.MethodGet, "/logs/*", nil)
	rec := httptest.NewRecorder()
	srv.handleLogs(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Error string            `json:"error"`
		Logs  []model.LogRecord `json:"logs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error == "" || len(body.Logs) != 0 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleSearch(t *testing.T) {
	srv, w, _ := testServer(t)
	seed(t, w, model.LevelError, "upstream timeout")

	req := httptest.NewRequest(http.MethodGet, "/logs/search/ssdvr?query=timeout", nil)
	rec := httptest.NewRecorder()
	srv.handleSearch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Query   string            `json:"query"`
		Matches []model.LogRecord `json:"matches"`
		Count   int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 1 || body.Matches[0].Message != "upstream timeout" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleSearchMissingQuery(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logs/search/ssdvr", nil)
	rec := httptest.NewRecorder()
	srv.handleSearch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	srv, w, _ := testServer(t)
	seed(t, w, model.LevelError, "boom")

	req := httptest.NewRequest(http.MethodGet, "/logs/stats/ssdvr?app=sports-scheduler", nil)
	rec := httptest.NewRecorder()
	srv.handleStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var totals map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &totals); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if totals["total_logs"] != 1 {
		t.Errorf("totals = %v", totals)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, w, s := testServer(t)
	seed(t, w, model.LevelInfo, "hello")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var h query.Health
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h.Status != "healthy" || h.RedisKeys == 0 {
		t.Errorf("health = %+v", h)
	}

	s.Close()
	rec = httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after store loss = %d, want 503", rec.Code)
	}
}

func TestHandleRescan(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/rescan", nil)
	rec := httptest.NewRecorder()
	srv.handleRescan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["queued"] != 7 {
		t.Errorf("queued = %d, want 7", body["queued"])
	}

	rec = httptest.NewRecorder()
	srv.handleRescan(rec, httptest.NewRequest(http.MethodGet, "/ingest/rescan", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestHandleRescanFailure(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.rescan = &fakeRescanner{err: errors.New("walk failed")}

	req := httptest.NewRequest(http.MethodPost, "/ingest/rescan", nil)
	rec := httptest.NewRecorder()
	srv.handleRescan(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
