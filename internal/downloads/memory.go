package downloads

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory
type MemoryStore struct {
	base
	mu    sync.Mutex
	stats map[string]int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		base:  newBase(opts),
		stats: make(map[string]int),
	}
}

func (s *MemoryStore) IncrementToday(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := s.today()
	s.stats[day]++
	return s.stats[day], nil
}

func (s *MemoryStore) ReadAll(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.stats))
	for k, v := range s.stats {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = make(map[string]int)
	return nil
}

func (s *MemoryStore) HealthCheck(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
