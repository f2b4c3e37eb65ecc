package countstore

import (
	"context"
	"sync"

	"github.com/tiptune/tipmod/models"
)

// Buckets are never expired; this is only meant for tests and single-process development.
type MemCountStore struct {
	mu     sync.Mutex
	Counts map[string]map[models.ModerationResult]int
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		Counts: make(map[string]map[models.ModerationResult]int),
	}
}

func (s *MemCountStore) Increment(ctx context.Context, result models.ModerationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range AllPeriods {
		k := periodBucket(p)
		m, ok := s.Counts[k]
		if !ok {
			m = make(map[models.ModerationResult]int)
			s.Counts[k] = m
		}
		m[result]++
	}
	return nil
}

func (s *MemCountStore) GetCounts(ctx context.Context, period string) (map[models.ModerationResult]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := zeroCounts()
	for r, c := range s.Counts[periodBucket(period)] {
		out[r] = c
	}
	return out, nil
}
