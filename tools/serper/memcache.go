package serper

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrMemCacheMiss 表示内存缓存中不存在该键或已过期。
var ErrMemCacheMiss = errors.New("serper: memory cache miss")

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache 是进程内的 TTL 缓存，未配置 Redis 时的缺省选择。
// 值以 JSON 字节存储，读写互不共享底层对象。
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemoryCache 创建内存缓存。
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memEntry)}
}

// GetJSON 读取缓存值并反序列化到 dest。
func (c *MemoryCache) GetJSON(_ context.Context, key string, dest any) error {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return ErrMemCacheMiss
	}
	return json.Unmarshal(entry.data, dest)
}

// SetJSON 序列化并写入缓存值。
func (c *MemoryCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = memEntry{data: data, expiresAt: time.Now().Add(ttl)}
	c.prune()
	c.mu.Unlock()
	return nil
}

// prune 清理过期条目，调用方需持有写锁。
func (c *MemoryCache) prune() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
