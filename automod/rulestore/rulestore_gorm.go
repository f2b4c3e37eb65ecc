package rulestore

import (
	"context"
	"errors"

	"github.com/tiptune/tipmod/models"

	"gorm.io/gorm"
)

type GormRuleStore struct {
	db *gorm.DB
}

var _ RuleStore = (*GormRuleStore)(nil)

func NewGormRuleStore(db *gorm.DB) *GormRuleStore {
	return &GormRuleStore{db: db}
}

func (s *GormRuleStore) GlobalRules(ctx context.Context) ([]models.KeywordRule, error) {
	var rules []models.KeywordRule
	if err := s.db.WithContext(ctx).Where("artist_id IS NULL").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormRuleStore) ArtistRules(ctx context.Context, artistID string) ([]models.KeywordRule, error) {
	var rules []models.KeywordRule
	if err := s.db.WithContext(ctx).Where("artist_id = ?", artistID).Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormRuleStore) GetRule(ctx context.Context, id string) (*models.KeywordRule, error) {
	var rule models.KeywordRule
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRuleNotFound
	} else if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *GormRuleStore) AddRule(ctx context.Context, rule *models.KeywordRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *GormRuleStore) DeleteRule(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.KeywordRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
