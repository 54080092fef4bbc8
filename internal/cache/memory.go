package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache 进程内答案缓存，单机部署时免去 Redis 依赖
type MemoryCache struct {
	lru *expirable.LRU[string, entry]
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 4096
	}

	return &MemoryCache{
		lru: expirable.NewLRU[string, entry](size, nil, ttl),
	}
}

// Get 查询缓存的答案
func (m *MemoryCache) Get(_ context.Context, question string) (string, bool, error) {
	e, ok := m.lru.Get(cacheKey(question))
	if !ok {
		return "", false, nil
	}
	return e.Answer, true, nil
}

// Put 写入缓存
func (m *MemoryCache) Put(_ context.Context, question, answer string) error {
	m.lru.Add(cacheKey(question), entry{Question: question, Answer: answer})
	return nil
}

// Invalidate 删除缓存条目，不存在时为空操作
func (m *MemoryCache) Invalidate(_ context.Context, question string) error {
	m.lru.Remove(cacheKey(question))
	return nil
}

// ClearAll 清空全部缓存，内存缓存独占命名空间，直接清空即可
func (m *MemoryCache) ClearAll(_ context.Context) error {
	m.lru.Purge()
	return nil
}

// Close 内存缓存无需释放资源
func (m *MemoryCache) Close() error {
	return nil
}
