package rulestore

import (
	"context"
	"log/slog"

	"github.com/tiptune/tipmod/models"
)

// Read-through cache in front of another RuleStore. Adding or deleting a rule purges the cached list for that rule's scope.
//
// Cache failures are logged and fall through to the backing store; they never fail a read.
type CachedRuleStore struct {
	Store  RuleStore
	Cache  RuleCache
	Logger *slog.Logger
}

var _ RuleStore = (*CachedRuleStore)(nil)

func NewCachedRuleStore(store RuleStore, c RuleCache, logger *slog.Logger) *CachedRuleStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRuleStore{
		Store:  store,
		Cache:  c,
		Logger: logger.With("component", "rulecache"),
	}
}

func (s *CachedRuleStore) cached(ctx context.Context, scope string, load func() ([]models.KeywordRule, error)) ([]models.KeywordRule, error) {
	rules, ok, err := s.Cache.Get(ctx, scope)
	if err != nil {
		s.Logger.Warn("keyword rule cache read failed", "scope", scope, "err", err)
	} else if ok {
		ruleCacheHits.Inc()
		return rules, nil
	}
	ruleCacheMisses.Inc()

	rules, err = load()
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, scope, rules); err != nil {
		s.Logger.Warn("keyword rule cache write failed", "scope", scope, "err", err)
	}
	return rules, nil
}

func (s *CachedRuleStore) purge(ctx context.Context, scope string) {
	if err := s.Cache.Purge(ctx, scope); err != nil {
		s.Logger.Error("keyword rule cache purge failed", "scope", scope, "err", err)
	}
}

func (s *CachedRuleStore) GlobalRules(ctx context.Context) ([]models.KeywordRule, error) {
	return s.cached(ctx, scopeGlobal, func() ([]models.KeywordRule, error) {
		return s.Store.GlobalRules(ctx)
	})
}

func (s *CachedRuleStore) ArtistRules(ctx context.Context, artistID string) ([]models.KeywordRule, error) {
	return s.cached(ctx, artistScope(artistID), func() ([]models.KeywordRule, error) {
		return s.Store.ArtistRules(ctx, artistID)
	})
}

func (s *CachedRuleStore) GetRule(ctx context.Context, id string) (*models.KeywordRule, error) {
	return s.Store.GetRule(ctx, id)
}

func (s *CachedRuleStore) AddRule(ctx context.Context, rule *models.KeywordRule) error {
	if err := s.Store.AddRule(ctx, rule); err != nil {
		return err
	}
	s.purge(ctx, scopeOf(rule))
	return nil
}

func (s *CachedRuleStore) DeleteRule(ctx context.Context, id string) error {
	rule, err := s.Store.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.purge(ctx, scopeOf(rule))
	return nil
}
