package logstore

import (
	"context"
	"errors"

	"github.com/tiptune/tipmod/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormLogStore struct {
	db *gorm.DB
}

var (
	_ LogStore = (*GormLogStore)(nil)
	_ TipStore = (*GormLogStore)(nil)
)

func NewGormLogStore(db *gorm.DB) *GormLogStore {
	return &GormLogStore{db: db}
}

func (s *GormLogStore) CreateLog(ctx context.Context, log *models.ModerationLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

func (s *GormLogStore) GetLog(ctx context.Context, id string) (*models.ModerationLog, error) {
	var log models.ModerationLog
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLogNotFound
	} else if err != nil {
		return nil, err
	}

	tip, err := s.GetTip(ctx, log.TipID)
	if err != nil && !errors.Is(err, ErrTipNotFound) {
		return nil, err
	}
	log.Tip = tip
	return &log, nil
}

func (s *GormLogStore) SaveReview(ctx context.Context, log *models.ModerationLog, tip *models.Tip, onlyPending bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.ModerationLog{}).Where("id = ?", log.ID)
		if onlyPending {
			q = q.Where("was_manually_reviewed = ?", false)
		}
		res := q.Updates(map[string]any{
			"moderation_result":     log.ModerationResult,
			"was_manually_reviewed": log.WasManuallyReviewed,
			"reviewed_by":           log.ReviewedBy,
			"review_action":         log.ReviewAction,
			"reviewed_at":           log.ReviewedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.ModerationLog{}).Where("id = ?", log.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrLogNotFound
			}
			return ErrAlreadyReviewed
		}

		if tip != nil {
			if err := tx.Model(&models.Tip{}).Where("id = ?", tip.ID).Update("message", tip.Message).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormLogStore) ListPending(ctx context.Context, offset, limit int) ([]models.ModerationLog, int64, error) {
	pending := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.ModerationLog{}).
			Where("moderation_result = ? AND was_manually_reviewed = ?", models.ResultFlagged, false)
	}

	var total int64
	if err := pending().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := []models.ModerationLog{}
	if err := pending().Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	if len(logs) == 0 {
		return logs, total, nil
	}

	tipIDs := make([]string, 0, len(logs))
	for _, l := range logs {
		tipIDs = append(tipIDs, l.TipID)
	}
	var tips []models.Tip
	if err := s.db.WithContext(ctx).Where("id IN ?", tipIDs).Find(&tips).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[string]*models.Tip, len(tips))
	for i := range tips {
		byID[tips[i].ID] = &tips[i]
	}
	for i := range logs {
		logs[i].Tip = byID[logs[i].TipID]
	}
	return logs, total, nil
}

func (s *GormLogStore) CountByResult(ctx context.Context) (map[models.ModerationResult]int64, error) {
	var rows []struct {
		ModerationResult models.ModerationResult
		Count            int64
	}
	err := s.db.WithContext(ctx).Model(&models.ModerationLog{}).
		Select("moderation_result, count(*) as count").
		Group("moderation_result").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := zeroCounts()
	for _, r := range rows {
		out[r.ModerationResult] = r.Count
	}
	return out, nil
}

func (s *GormLogStore) CreateTip(ctx context.Context, tip *models.Tip) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(tip)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTipExists
	}
	return nil
}

func (s *GormLogStore) SaveTip(ctx context.Context, tip *models.Tip) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(tip).Error
}

func (s *GormLogStore) GetTip(ctx context.Context, id string) (*models.Tip, error) {
	var tip models.Tip
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&tip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTipNotFound
	} else if err != nil {
		return nil, err
	}
	return &tip, nil
}

func (s *GormLogStore) DeleteTip(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Tip{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTipNotFound
	}
	return nil
}
