package index

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/cleptogk/logger/internal/store"
)

// Fingerprint identifies a file's current content state. A file whose
// fingerprint matches its stored cursor has not changed since it was
// last processed.
func Fingerprint(path string, size int64, mtime time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%d", path, size, mtime.UnixNano())))
	return hex.EncodeToString(sum[:])
}

// Cursor is the per-file processing state kept under the file's
// fingerprint. Cursors are never deleted explicitly; they expire with
// the retention TTL.
type Cursor struct {
	FilePath    string
	FileSize    int64
	ProcessedAt time.Time
	RecordCount int
}

// Seen reports whether a completed cursor exists for the fingerprint.
func (w *Writer) Seen(host, fingerprint string) (bool, error) {
	n, err := redis.Int(w.store.Do("EXISTS", store.MetaKey(host, fingerprint)))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SaveCursor records a successful processing pass.
func (w *Writer) SaveCursor(host, fingerprint string, cur Cursor) error {
	key := store.MetaKey(host, fingerprint)
	_, err := w.store.Do("HSET", key,
		"file_path", cur.FilePath,
		"file_size", cur.FileSize,
		"processed_at", cur.ProcessedAt.Format(time.RFC3339),
		"record_count", cur.RecordCount)
	if err != nil {
		return err
	}
	_, err = w.store.Do("EXPIRE", key, int(w.ttl.Seconds()))
	return err
}
