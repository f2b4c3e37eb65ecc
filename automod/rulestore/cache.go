package rulestore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tiptune/tipmod/models"

	"github.com/go-redis/cache/v9"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Caches the rule list of one scope ("global", or "artist/<id>").
//
// Only rule lists are cached; verdicts never are.
type RuleCache interface {
	Get(ctx context.Context, scope string) ([]models.KeywordRule, bool, error)
	Set(ctx context.Context, scope string, rules []models.KeywordRule) error
	Purge(ctx context.Context, scope string) error
}

// In-process rule cache. Lists are copied on the way in and out, so callers never share a backing array with the cache.
type MemRuleCache struct {
	Data *expirable.LRU[string, []models.KeywordRule]
}

var _ RuleCache = (*MemRuleCache)(nil)

func NewMemRuleCache(capacity int, ttl time.Duration) *MemRuleCache {
	return &MemRuleCache{
		Data: expirable.NewLRU[string, []models.KeywordRule](capacity, nil, ttl),
	}
}

func (c *MemRuleCache) Get(ctx context.Context, scope string) ([]models.KeywordRule, bool, error) {
	v, ok := c.Data.Get(scope)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (c *MemRuleCache) Set(ctx context.Context, scope string, rules []models.KeywordRule) error {
	c.Data.Add(scope, slices.Clone(rules))
	return nil
}

func (c *MemRuleCache) Purge(ctx context.Context, scope string) error {
	c.Data.Remove(scope)
	return nil
}

// Rule cache shared between service instances.
//
// There is no in-process tier: a purge from any instance must be visible to all of them on the next read.
type RedisRuleCache struct {
	Data *cache.Cache
	TTL  time.Duration
}

var _ RuleCache = (*RedisRuleCache)(nil)

func NewRedisRuleCache(redisURL string, ttl time.Duration) (*RedisRuleCache, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis: rdb,
	})
	return &RedisRuleCache{
		Data: data,
		TTL:  ttl,
	}, nil
}

func redisRuleKey(scope string) string {
	return "rules/" + scope
}

func (c *RedisRuleCache) Get(ctx context.Context, scope string) ([]models.KeywordRule, bool, error) {
	var rules []models.KeywordRule
	err := c.Data.Get(ctx, redisRuleKey(scope), &rules)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rules, true, nil
}

func (c *RedisRuleCache) Set(ctx context.Context, scope string, rules []models.KeywordRule) error {
	return c.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisRuleKey(scope),
		Value: rules,
		TTL:   c.TTL,
	})
}

func (c *RedisRuleCache) Purge(ctx context.Context, scope string) error {
	err := c.Data.Delete(ctx, redisRuleKey(scope))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
