package rulestore

import (
	"context"
	"sync"

	"github.com/tiptune/tipmod/models"
)

// In-process rule store, used in tests and by the offline preview command.
type MemRuleStore struct {
	mu    sync.RWMutex
	Rules map[string]models.KeywordRule
}

var _ RuleStore = (*MemRuleStore)(nil)

func NewMemRuleStore() *MemRuleStore {
	return &MemRuleStore{
		Rules: make(map[string]models.KeywordRule),
	}
}

func (s *MemRuleStore) GlobalRules(ctx context.Context) ([]models.KeywordRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.KeywordRule{}
	for _, r := range s.Rules {
		if r.ArtistID == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemRuleStore) ArtistRules(ctx context.Context, artistID string) ([]models.KeywordRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.KeywordRule{}
	for _, r := range s.Rules {
		if r.ArtistID != nil && *r.ArtistID == artistID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemRuleStore) GetRule(ctx context.Context, id string) (*models.KeywordRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.Rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return &r, nil
}

func (s *MemRuleStore) AddRule(ctx context.Context, rule *models.KeywordRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rules[rule.ID] = *rule
	return nil
}

func (s *MemRuleStore) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(s.Rules, id)
	return nil
}
