package downloads

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const tempFilePrefix = "download-stats-tmp-"

// FileStore keeps counters in a JSON object file, {"2024-03-18": 4, ...}.
// Every increment rewrites the file atomically.
type FileStore struct {
	base
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The parent directory is
// created if missing; the file itself is created on first increment.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}
	return &FileStore{base: newBase(opts), path: path}, nil
}

func (s *FileStore) IncrementToday(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.load()
	if err != nil {
		return 0, err
	}

	day := s.today()
	stats[day]++

	data, err := json.Marshal(stats)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return 0, err
	}
	return stats[day], nil
}

func (s *FileStore) ReadAll(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Reset removes the stats file. A missing file is already reset.
func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stats: %w", err)
	}
	return nil
}

func (s *FileStore) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

func (s *FileStore) Close() error { return nil }

// load reads the stats file. A missing or empty file is an empty map.
func (s *FileStore) load() (map[string]int, error) {
	stats := make(map[string]int)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	if len(data) == 0 {
		return stats, nil
	}

	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats %s: %w", s.path, err)
	}
	return stats, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}
