package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache Redis 答案缓存
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// Get 查询缓存的答案
func (r *RedisCache) Get(ctx context.Context, question string) (string, bool, error) {
	data, err := r.client.Get(ctx, cacheKey(question)).Result()
	if err == redis.Nil {
		return "", false, nil // 缓存未命中
	}
	if err != nil {
		return "", false, err
	}

	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return "", false, err
	}

	return e.Answer, true, nil
}

// Put 写入缓存，TTL 从写入时刻起算
func (r *RedisCache) Put(ctx context.Context, question, answer string) error {
	data, err := json.Marshal(entry{Question: question, Answer: answer})
	if err != nil {
		return err
	}

	return r.client.Set(ctx, cacheKey(question), data, r.ttl).Err()
}

// Invalidate 删除缓存条目，不存在时为空操作
func (r *RedisCache) Invalidate(ctx context.Context, question string) error {
	return r.client.Del(ctx, cacheKey(question)).Err()
}

// ClearAll 按前缀扫描删除本系统的全部缓存键
// SCAN 期间的并发写入不保证被覆盖，尽力而为
func (r *RedisCache) ClearAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, KeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return nil
}

// GetEmbedding 读取缓存的向量（供 Embedding 服务复用同一 Redis）
func (r *RedisCache) GetEmbedding(ctx context.Context, key string) ([]float64, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var vector []float64
	if err := json.Unmarshal([]byte(data), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// SetEmbedding 缓存向量
func (r *RedisCache) SetEmbedding(ctx context.Context, key string, vector []float64) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// Close 关闭 Redis 连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}
