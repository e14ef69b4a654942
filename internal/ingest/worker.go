package ingest

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/cleptogk/logger/internal/classify"
	"github.com/cleptogk/logger/internal/extract"
	"github.com/cleptogk/logger/internal/index"
	"github.com/cleptogk/logger/internal/model"
	"github.com/cleptogk/logger/internal/store"
)

// Pool runs a fixed set of workers that drain the dispatch queue and
// the shared Redis dispatch list, running the full per-file pipeline:
// read, extract, classify, index, update cursor. One file is processed
// start-to-finish by one worker.
type Pool struct {
	queue      <-chan string
	store      *store.Client
	classifier *classify.Classifier
	extractor  *extract.Extractor
	writer     *index.Writer

	maxLines    int // 0 = unlimited
	maxFileSize int64
	workers     int

	wg sync.WaitGroup
}

func NewPool(queue <-chan string, s *store.Client, cls *classify.Classifier, ext *extract.Extractor, w *index.Writer, workers, maxLines int, maxFileSize int64) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		queue:       queue,
		store:       s,
		classifier:  cls,
		extractor:   ext,
		writer:      w,
		maxLines:    maxLines,
		maxFileSize: maxFileSize,
		workers:     workers,
	}
}

// Start launches the workers. They run until the context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
	log.Printf("Started %d ingest workers", p.workers)
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	timer := time.NewTimer(time.Second)
	defer timer.Stop()

	for {
		timer.Reset(time.Second)
		select {
		case <-ctx.Done():
			return
		case path := <-p.queue:
			p.processFile(id, path)
		case <-timer.C:
			// No local work; drain externally pushed backfill paths.
			path, err := redis.String(p.store.Do("RPOP", store.QueueKey))
			if err != nil {
				continue
			}
			p.processFile(id, path)
		}
	}
}

// processFile runs the pipeline for one file and returns the number of
// records indexed. Failures are logged and never abort the worker.
func (p *Pool) processFile(workerID int, path string) int {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("Worker %d: cannot stat %s: %v", workerID, path, err)
		return 0
	}
	if p.maxFileSize > 0 && info.Size() > p.maxFileSize {
		log.Printf("Worker %d: skipping large file %s (%d bytes)", workerID, path, info.Size())
		return 0
	}

	src := p.classifier.Classify(path)
	fp := index.Fingerprint(path, info.Size(), info.ModTime())
	if seen, err := p.writer.Seen(src.Host, fp); err == nil && seen {
		return 0
	}

	count := p.indexFile(workerID, path, src)

	if err := p.writer.SaveCursor(src.Host, fp, index.Cursor{
		FilePath:    path,
		FileSize:    info.Size(),
		ProcessedAt: time.Now(),
		RecordCount: count,
	}); err != nil {
		log.Printf("Worker %d: cursor update failed for %s: %v", workerID, path, err)
	}
	log.Printf("Worker %d: indexed %d records from %s", workerID, count, path)
	return count
}

func (p *Pool) indexFile(workerID int, path string, src classify.Source) int {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Worker %d: error reading %s: %v", workerID, path, err)
		return 0
	}

	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	base := 0
	if p.maxLines > 0 && len(lines) > p.maxLines {
		base = len(lines) - p.maxLines
		lines = lines[base:]
		log.Printf("Worker %d: truncated %s to %d lines", workerID, path, p.maxLines)
	}

	// Newest-first so the freshest activity is never lost to the line
	// cap or a set trim.
	count := 0
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		rec := p.buildRecord(line, path, base+i+1, src)
		if err := p.writer.Write(rec); err != nil {
			continue
		}
		count++
	}
	return count
}

// buildRecord merges message-derived fields with path-derived ones.
// The file location is authoritative: when the structured per-step
// layout encodes (refresh_id, step_name), those override anything
// found in the message.
func (p *Pool) buildRecord(line, path string, lineNo int, src classify.Source) *model.LogRecord {
	f := p.extractor.Line(line)

	rec := &model.LogRecord{
		Timestamp:       f.Timestamp,
		Level:           f.Level,
		Message:         line,
		Host:            src.Host,
		Application:     src.Application,
		Component:       src.Component,
		FilePath:        path,
		LineNumber:      lineNo,
		RefreshID:       f.RefreshID,
		StepNumber:      f.StepNumber,
		DurationSeconds: f.DurationSeconds,
		StepStatus:      f.StepStatus,
	}

	if rec.Component == "" || rec.Component == "general" {
		component, step := p.classifier.ComponentFor(src.Application, line)
		rec.Component = component
		if rec.StepName == "" {
			rec.StepName = step
		}
	}
	if rec.StepName == "" && f.StepNumber > 0 {
		rec.StepName = p.classifier.StepName(f.StepNumber)
	}

	if src.RefreshID != "" {
		rec.RefreshID = src.RefreshID
	}
	if src.StepName != "" {
		rec.StepName = src.StepName
	}
	return rec
}
