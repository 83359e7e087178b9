// Package snapshot appends the raw payloads fetched during enrichment runs
// to day-sliced compressed files, so a run's external responses can be
// inspected or replayed later.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jinzhu/now"
	"github.com/klauspost/compress/zstd"
	"github.com/segmentio/encoding/json"

	"github.com/bzuer/zoteroEhancer/fetch"
	"github.com/bzuer/zoteroEhancer/schema/googlebooks"
	"github.com/bzuer/zoteroEhancer/schema/openalex"
)

// Entry is one logged payload.
type Entry struct {
	Source  string                  `json:"source"`
	ID      string                  `json:"id"`
	Fetched time.Time               `json:"fetched"`
	Book    *googlebooks.VolumeInfo `json:"book,omitempty"`
	Work    *openalex.Work          `json:"work,omitempty"`
}

// Writer appends JSON lines to one zstd compressed file per calendar day
// under Dir. Safe for concurrent use; concatenated zstd frames across
// process restarts remain a valid stream.
type Writer struct {
	Dir string

	mu  sync.Mutex
	day time.Time
	f   *os.File
	zw  *zstd.Encoder
	enc *json.Encoder

	nowFunc func() time.Time // test hook
}

// NewWriter returns a writer placing slices under dir. Nothing is created
// until the first Write.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Filename returns the slice name for a given day.
func Filename(day time.Time) string {
	return fmt.Sprintf("payloads-%s.json.zst", day.Format("2006-01-02"))
}

// Write appends one payload entry to the current day slice.
func (w *Writer) Write(source, id string, p *fetch.Payload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	t := time.Now()
	if w.nowFunc != nil {
		t = w.nowFunc()
	}
	day := now.With(t).BeginningOfDay()
	if w.f == nil || !day.Equal(w.day) {
		if err := w.rotate(day); err != nil {
			return err
		}
	}
	e := Entry{Source: source, ID: id, Fetched: t}
	if p != nil {
		e.Book = p.Book
		e.Work = p.Work
	}
	return w.enc.Encode(e)
}

func (w *Writer) rotate(day time.Time) error {
	if err := w.closeCurrent(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.Dir, Filename(day)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return err
	}
	w.f, w.zw, w.enc, w.day = f, zw, json.NewEncoder(zw), day
	return nil
}

func (w *Writer) closeCurrent() error {
	if w.f == nil {
		return nil
	}
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return err
	}
	err := w.f.Close()
	w.f, w.zw, w.enc = nil, nil, nil
	return err
}

// Close flushes and closes the current slice.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeCurrent()
}
