// Package jsonfile implements the persistence primitives of the file-backed
// store: one JSON document per collection, mapping string ids to records.
//
// Writes follow a single-writer queue per collection. A mutation updates the
// in-memory state first, then hands the latest snapshot to the Writer; if a
// flush is already in flight the snapshot simply replaces the pending one, so
// any number of queued mutations coalesce into a single trailing write. The
// in-memory state therefore always reflects the latest accepted write before
// its flush completes.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Load reads a collection document into a map of raw records. A missing
// file yields an empty collection, not an error; a file that is not a JSON
// object is reported so the caller can decide whether to seed.
func Load(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read collection %s: %w", path, err)
	}
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	records := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse collection %s: %w", path, err)
	}
	return records, nil
}

// Writer serializes flushes of one collection file.
type Writer struct {
	path string
	log  *zap.SugaredLogger

	mu      sync.Mutex
	idle    *sync.Cond
	pending []byte
	writing bool
	again   bool
}

// NewWriter creates a Writer for the collection file at path, creating the
// parent directory if needed.
func NewWriter(path string, log *zap.SugaredLogger) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	w := &Writer{path: path, log: log}
	w.idle = sync.NewCond(&w.mu)
	return w, nil
}

// Save queues a full-collection snapshot for flushing. It returns
// immediately; a snapshot queued while a flush is in flight replaces any
// previously queued one.
func (w *Writer) Save(snapshot []byte) {
	w.mu.Lock()
	w.pending = snapshot
	if w.writing {
		w.again = true
		w.mu.Unlock()
		return
	}
	w.writing = true
	w.mu.Unlock()
	go w.run()
}

func (w *Writer) run() {
	for {
		w.mu.Lock()
		data := w.pending
		w.again = false
		w.mu.Unlock()

		if err := w.write(data); err != nil {
			w.log.Errorw("collection flush failed", "path", w.path, "err", err)
		}

		w.mu.Lock()
		if w.again {
			w.mu.Unlock()
			continue
		}
		w.writing = false
		w.idle.Broadcast()
		w.mu.Unlock()
		return
	}
}

// write replaces the collection file atomically via a temp file and rename,
// so a crash mid-flush never leaves a truncated document.
func (w *Writer) write(data []byte) error {
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, w.path)
}

// Wait blocks until no flush is queued or in flight. Used at shutdown and
// by tests that need to observe the on-disk state.
func (w *Writer) Wait() {
	w.mu.Lock()
	for w.writing {
		w.idle.Wait()
	}
	w.mu.Unlock()
}
