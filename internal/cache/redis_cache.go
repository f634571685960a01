package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/snapgram/internal/config"
)

// versionTTL outlives any in-flight fill so an expired counter cannot
// reopen a window that an invalidation closed.
const versionTTL = 24 * time.Hour

// setIfVersion writes KEYS[2] only when KEYS[1] still holds ARGV[1].
// A missing version counts as "0". ARGV[3] is the TTL in ms, 0 for none.
var setIfVersion = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if (v or '0') ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

type RedisPostCache struct {
	client *redis.Client
	prefix string
}

func NewRedisPostCache(cfg config.RedisConfig, prefix string) (*RedisPostCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisPostCacheFromClient(client, prefix), nil
}

// NewRedisPostCacheFromClient wraps an existing client without pinging it.
func NewRedisPostCacheFromClient(client *redis.Client, prefix string) *RedisPostCache {
	if prefix == "" {
		prefix = "post"
	}
	return &RedisPostCache{client: client, prefix: prefix}
}

func (c *RedisPostCache) BuildKeyByID(postID string) string {
	return fmt.Sprintf("%s:id:%s", c.prefix, postID)
}

func (c *RedisPostCache) versionKey(postID string) string {
	return fmt.Sprintf("%s:ver:%s", c.prefix, postID)
}

func (c *RedisPostCache) Get(ctx context.Context, postID string) (*PostCacheResult, error) {
	data, err := c.client.Get(ctx, c.BuildKeyByID(postID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result PostCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &result, nil
}

func (c *RedisPostCache) Version(ctx context.Context, postID string) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(postID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get version from redis: %w", err)
	}
	return v, nil
}

func (c *RedisPostCache) SetIfVersion(ctx context.Context, postID string, version int64, result *PostCacheResult, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cache data: %w", err)
	}

	keys := []string{c.versionKey(postID), c.BuildKeyByID(postID)}
	stored, err := setIfVersion.Run(ctx, c.client, keys, strconv.FormatInt(version, 10), data, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to set in redis: %w", err)
	}
	return stored == 1, nil
}

func (c *RedisPostCache) Invalidate(ctx context.Context, postID string) error {
	versionKey := c.versionKey(postID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionTTL)
		pipe.Del(ctx, c.BuildKeyByID(postID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate in redis: %w", err)
	}
	return nil
}

func (c *RedisPostCache) Close() error {
	return c.client.Close()
}
