package logstore

import (
	"context"
	"sort"
	"sync"

	"github.com/tiptune/tipmod/models"
)

type MemLogStore struct {
	mu   sync.Mutex
	Logs map[string]models.ModerationLog
	Tips map[string]models.Tip
}

var (
	_ LogStore = (*MemLogStore)(nil)
	_ TipStore = (*MemLogStore)(nil)
)

func NewMemLogStore() *MemLogStore {
	return &MemLogStore{
		Logs: make(map[string]models.ModerationLog),
		Tips: make(map[string]models.Tip),
	}
}

func (s *MemLogStore) CreateLog(ctx context.Context, log *models.ModerationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *log
	stored.Tip = nil
	s.Logs[log.ID] = stored
	return nil
}

// caller must hold the lock
func (s *MemLogStore) withTip(log models.ModerationLog) models.ModerationLog {
	if tip, ok := s.Tips[log.TipID]; ok {
		log.Tip = &tip
	}
	return log
}

func (s *MemLogStore) GetLog(ctx context.Context, id string) (*models.ModerationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.Logs[id]
	if !ok {
		return nil, ErrLogNotFound
	}
	log = s.withTip(log)
	return &log, nil
}

func (s *MemLogStore) SaveReview(ctx context.Context, log *models.ModerationLog, tip *models.Tip, onlyPending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.Logs[log.ID]
	if !ok {
		return ErrLogNotFound
	}
	if onlyPending && stored.WasManuallyReviewed {
		return ErrAlreadyReviewed
	}
	stored.ModerationResult = log.ModerationResult
	stored.WasManuallyReviewed = log.WasManuallyReviewed
	stored.ReviewedBy = log.ReviewedBy
	stored.ReviewAction = log.ReviewAction
	stored.ReviewedAt = log.ReviewedAt
	s.Logs[log.ID] = stored

	if tip != nil {
		if t, ok := s.Tips[tip.ID]; ok {
			t.Message = tip.Message
			s.Tips[tip.ID] = t
		}
	}
	return nil
}

func (s *MemLogStore) ListPending(ctx context.Context, offset, limit int) ([]models.ModerationLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.ModerationLog
	for _, l := range s.Logs {
		if l.ModerationResult == models.ResultFlagged && !l.WasManuallyReviewed {
			pending = append(pending, l)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.After(pending[j].CreatedAt)
		}
		return pending[i].ID > pending[j].ID
	})

	total := int64(len(pending))
	out := []models.ModerationLog{}
	for i := offset; i < len(pending) && len(out) < limit; i++ {
		out = append(out, s.withTip(pending[i]))
	}
	return out, total, nil
}

func (s *MemLogStore) CountByResult(ctx context.Context) (map[models.ModerationResult]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := zeroCounts()
	for _, l := range s.Logs {
		out[l.ModerationResult]++
	}
	return out, nil
}

func (s *MemLogStore) CreateTip(ctx context.Context, tip *models.Tip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Tips[tip.ID]; ok {
		return ErrTipExists
	}
	s.Tips[tip.ID] = *tip
	return nil
}

func (s *MemLogStore) SaveTip(ctx context.Context, tip *models.Tip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tips[tip.ID] = *tip
	return nil
}

func (s *MemLogStore) GetTip(ctx context.Context, id string) (*models.Tip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tip, ok := s.Tips[id]
	if !ok {
		return nil, ErrTipNotFound
	}
	return &tip, nil
}

func (s *MemLogStore) DeleteTip(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Tips[id]; !ok {
		return ErrTipNotFound
	}
	delete(s.Tips, id)
	return nil
}
