package countstore

import (
	"context"
	"strconv"
	"time"

	"github.com/tiptune/tipmod/models"

	"github.com/redis/go-redis/v9"
)

var redisTallyPrefix string = "tally/"

// Each bucket is a redis hash, with one field per moderation result.
type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rcs := RedisCountStore{
		Client: rdb,
	}
	return &rcs, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, result models.ModerationResult) error {

	var key string
	field := string(result)

	// increment all buckets in a single redis round-trip
	multi := s.Client.Pipeline()

	key = redisTallyPrefix + periodBucket(PeriodHour)
	multi.HIncrBy(ctx, key, field, 1)
	multi.Expire(ctx, key, 2*time.Hour)

	key = redisTallyPrefix + periodBucket(PeriodDay)
	multi.HIncrBy(ctx, key, field, 1)
	multi.Expire(ctx, key, 48*time.Hour)

	key = redisTallyPrefix + periodBucket(PeriodTotal)
	multi.HIncrBy(ctx, key, field, 1)
	// no expiration for total

	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) GetCounts(ctx context.Context, period string) (map[models.ModerationResult]int, error) {
	key := redisTallyPrefix + periodBucket(period)
	raw, err := s.Client.HGetAll(ctx, key).Result()
	if err == redis.Nil {
		return zeroCounts(), nil
	} else if err != nil {
		return nil, err
	}
	out := zeroCounts()
	for field, v := range raw {
		c, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out[models.ModerationResult(field)] = c
	}
	return out, nil
}
