package watch

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/cleptogk/logger/internal/classify"
	"github.com/cleptogk/logger/internal/index"
)

// Dispatcher observes the log root for file creation and modification,
// deduplicates events by content fingerprint, and feeds a bounded work
// queue. When the queue is full new events are dropped with a warning;
// the watcher thread never blocks. Dropped files are picked up again
// by the next notification or by the periodic rescan.
type Dispatcher struct {
	root       string
	queue      chan string
	classifier *classify.Classifier
	writer     *index.Writer
	fw         *fsnotify.Watcher
}

func NewDispatcher(root string, queueCap int, cls *classify.Classifier, w *index.Writer) *Dispatcher {
	return &Dispatcher{
		root:       root,
		queue:      make(chan string, queueCap),
		classifier: cls,
		writer:     w,
	}
}

// Queue exposes the work queue drained by the worker pool.
func (d *Dispatcher) Queue() <-chan string {
	return d.queue
}

// Start watches the root directory tree until the context is
// cancelled. fsnotify watches are not recursive, so every directory is
// registered individually and new directories are added as they
// appear.
func (d *Dispatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	d.fw = fw

	if err := d.watchTree(d.root); err != nil {
		fw.Close()
		return err
	}
	log.Printf("Watching %s for log changes", d.root)

	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				d.handleEvent(ev)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Printf("Watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (d *Dispatcher) handleEvent(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := d.watchTree(ev.Name); err != nil {
				log.Printf("Failed to watch new directory %s: %v", ev.Name, err)
			}
			return
		}
	}
	if strings.HasSuffix(ev.Name, ".log") {
		d.Enqueue(ev.Name)
	}
}

// Enqueue pushes one file path onto the work queue unless its cursor
// shows it unchanged since the last processing pass. Reports whether
// the path was queued.
func (d *Dispatcher) Enqueue(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	host := d.classifier.Classify(path).Host
	fp := index.Fingerprint(path, info.Size(), info.ModTime())
	if seen, err := d.writer.Seen(host, fp); err == nil && seen {
		return false
	}
	select {
	case d.queue <- path:
		return true
	default:
		log.Printf("Dispatch queue full, dropping event for %s", path)
		return false
	}
}

func (d *Dispatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return d.fw.Add(path)
		}
		return nil
	})
}
