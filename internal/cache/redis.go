package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/ravematch/internal/config"
)

// LikeCountTTL is refreshed on every read and write of a counter.
const LikeCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForLikeCount generates the Redis key of a user's liked-you counter.
func (c *RedisCache) KeyForLikeCount(uid string) string {
	return "likes:count:" + uid
}

// GetLikeCount returns the cached counter. ok is false on a cache miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, uid string) (count int64, ok bool, err error) {
	key := c.KeyForLikeCount(uid)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL since this user is active
	_ = c.Client.Expire(ctx, key, LikeCountTTL).Err()
	return n, true, nil
}

// SetLikeCount stores the counter with a fresh TTL.
func (c *RedisCache) SetLikeCount(ctx context.Context, uid string, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikeCount(uid), count, LikeCountTTL).Err()
}

// IncrLikeCount bumps an already cached counter. A missing counter is left
// missing so the next read recounts from the store.
func (c *RedisCache) IncrLikeCount(ctx context.Context, uid string) error {
	key := c.KeyForLikeCount(uid)
	n, err := c.Client.Exists(ctx, key).Result()
	if err != nil || n == 0 {
		return err
	}
	pipe := c.Client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, LikeCountTTL)
	_, err = pipe.Exec(ctx)
	return err
}
