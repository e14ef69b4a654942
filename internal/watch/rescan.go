package watch

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"
)

// Rescan walks the log root and enqueues every log file whose content
// has changed. Used for initial backfill and to recover events dropped
// when the queue was full.
func (d *Dispatcher) Rescan() (int, error) {
	queued := 0
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.HasSuffix(path, ".log") && d.Enqueue(path) {
			queued++
		}
		return nil
	})
	return queued, err
}

// RunRescanLoop periodically rescans the tree until the context is
// cancelled.
func (d *Dispatcher) RunRescanLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Rescan loop started. Interval: %v", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.Rescan()
			if err != nil {
				log.Printf("Rescan error: %v", err)
				continue
			}
			log.Printf("Rescan queued %d files", n)
		}
	}
}
