// Package mirror maintains the derived knowledge-base snapshot file the
// front-line agent reads. The file is never authoritative: it is regenerated
// in full from the knowledge_entries table after every mutation, so a missed
// write self-heals on the next one.
package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Entry is the projection of one knowledge-base row the agent consumes.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Writer overwrites the snapshot file wholesale. A mutex serializes
// concurrent regenerations so interleaved writers cannot tear the file; the
// last completed regeneration wins.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates a snapshot writer for the given path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the snapshot file location.
func (w *Writer) Path() string {
	return w.path
}

// Write replaces the snapshot with the given entries. The file is written to
// a temp file in the same directory and renamed into place so the agent never
// observes a partially written snapshot.
func (w *Writer) Write(entries []Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".knowledge-snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}
