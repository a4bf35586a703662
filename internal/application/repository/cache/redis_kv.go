// Package cache implements the two-tier response cache: Tier A
// exact-match over a key/value store with an in-process LFU fallback,
// and Tier B semantic lookup over a vector collection. The wire layer
// follows a Redis key-prefix, read-modify-write idiom.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/faqrag/engine/internal/types/interfaces"
)

// RedisKV implements interfaces.KVStore over go-redis.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV builds a KVStore client against addr ("host:port").
func NewRedisKV(addr, password string, db int) *RedisKV {
	return &RedisKV{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) SetEX(ctx context.Context, key string, value []byte, ttlSeconds int64) error {
	if err := r.client.SetEx(ctx, key, value, secondsToDuration(ttlSeconds)).Err(); err != nil {
		return fmt.Errorf("redis SETEX %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := r.client.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis SCAN %s: %w", match, err)
	}
	return keys, next, nil
}

func (r *RedisKV) Expire(ctx context.Context, key string, ttlSeconds int64) error {
	if err := r.client.Expire(ctx, key, secondsToDuration(ttlSeconds)).Err(); err != nil {
		return fmt.Errorf("redis EXPIRE %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ interfaces.KVStore = (*RedisKV)(nil)
