package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/infrastructure/config"
	"pantry-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "pantry:ai:"

// RedisCache 以 Redis 保存回應，過期交給 Redis TTL
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache 連線並確認 Redis 可用
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheWithClient(client, cfg.KeyPrefix, ttl), nil
}

// NewRedisCacheWithClient 使用既有的客戶端
func NewRedisCacheWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get 取得快取
func (c *RedisCache) Get(ctx context.Context, key string) (*provider.Response, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var resp provider.Response
	if err := common.ParseJSONStrict(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	resp.CacheHit = true
	return &resp, nil
}

// Set 設置快取
func (c *RedisCache) Set(ctx context.Context, key string, resp *provider.Response) error {
	value := *resp
	value.CacheHit = false
	data, err := common.ToJSON(value)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Sweep Redis 自行處理過期，這裡只確認連線
func (c *RedisCache) Sweep(ctx context.Context) (int, error) {
	return 0, c.client.Ping(ctx).Err()
}

// Close 關閉連線
func (c *RedisCache) Close() error {
	return c.client.Close()
}
