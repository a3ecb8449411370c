package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ClimateTrend/internal/ports"
)

// FileStore persists the set of completed extraction windows as a small JSON
// document. A missing file reads as empty progress, so the first run needs no
// setup and deleting the file forces a full re-extract.
type FileStore struct {
	path string

	mu   sync.Mutex
	done map[string]bool
}

var _ ports.ProgressStore = (*FileStore)(nil)

// NewFileStore returns a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type progressFile struct {
	Completed []string  `json:"completed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Completed returns the ids of all windows marked complete so far.
func (s *FileStore) Completed(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(s.done))
	for id := range s.done {
		out[id] = true
	}
	return out, nil
}

// MarkCompleted records a finished window and rewrites the file. Marking the
// same window again is a no-op rewrite.
func (s *FileStore) MarkCompleted(ctx context.Context, windowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	s.done[windowID] = true
	return s.flush()
}

func (s *FileStore) load() error {
	if s.done != nil {
		return nil
	}
	s.done = make(map[string]bool)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var pf progressFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parse checkpoint %s: %w", s.path, err)
	}
	for _, id := range pf.Completed {
		s.done[id] = true
	}
	return nil
}

func (s *FileStore) flush() error {
	ids := make([]string, 0, len(s.done))
	for id := range s.done {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(progressFile{Completed: ids, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	// Write-then-rename keeps the file parseable if we crash mid-write.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
